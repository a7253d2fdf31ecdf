package aggregator

import "sync/atomic"

// Counters are the observability counters emitted by the core
// (aggregator.payloads_in, aggregator.flushed_payloads,
// aggregator.flushed_buckets, aggregator.flush_errors). Names are the
// contract; a backend may namespace them however it likes.
type Counters struct {
	PayloadsIn      uint64
	FlushedPayloads uint64
	FlushedBuckets  uint64
	FlushErrors     uint64
}

func (c *Counters) incPayloadsIn()            { atomic.AddUint64(&c.PayloadsIn, 1) }
func (c *Counters) incFlushedPayloads()       { atomic.AddUint64(&c.FlushedPayloads, 1) }
func (c *Counters) addFlushedBuckets(n uint64) { atomic.AddUint64(&c.FlushedBuckets, n) }
func (c *Counters) incFlushErrors()           { atomic.AddUint64(&c.FlushErrors, 1) }

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() Counters {
	return Counters{
		PayloadsIn:      atomic.LoadUint64(&c.PayloadsIn),
		FlushedPayloads: atomic.LoadUint64(&c.FlushedPayloads),
		FlushedBuckets:  atomic.LoadUint64(&c.FlushedBuckets),
		FlushErrors:     atomic.LoadUint64(&c.FlushErrors),
	}
}
