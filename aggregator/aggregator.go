//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aggregator

import (
	"log"
	"sync"
	"time"
)

// Aggregator is the single long-lived actor that ingests
// AggregatorPoint and AggregatorOffset records, buckets them by 10s
// window and pathway hash, and periodically flushes completed windows
// through a Transport. All exported methods are safe to call from any
// number of producer goroutines; only the actor goroutine itself
// touches currentBuckets/originBuckets.
type Aggregator struct {
	Service, Env, PrimaryTag, TracerVersion, Lang string

	enabled   bool
	transport Transport
	counters  Counters

	cmdCh chan interface{}
	wg    sync.WaitGroup

	// overridable for tests
	FlushInterval time.Duration
}

type addPointCmd struct{ p AggregatorPoint }
type addOffsetCmd struct{ o AggregatorOffset }

// stopCmd is sent through cmdCh (never closed from outside run()) so
// that concurrent producers calling AddPoint/AddOffset can never race
// a send against a channel close.
type stopCmd struct{}

// New builds an Aggregator. If enabled is false, the returned
// Aggregator is never started by Start and every Add* call is a
// successful no-op (§4.G disabled mode).
func New(service, env, primaryTag, tracerVersion, lang string, transport Transport, enabled bool) *Aggregator {
	return &Aggregator{
		Service:       service,
		Env:           env,
		PrimaryTag:    primaryTag,
		TracerVersion: tracerVersion,
		Lang:          lang,
		enabled:       enabled,
		transport:     transport,
		cmdCh:         make(chan interface{}, 4096),
		FlushInterval: BucketDuration * time.Nanosecond,
	}
}

// Counters returns a snapshot of the observability counters.
func (a *Aggregator) Counters() Counters { return a.counters.Snapshot() }

// AddPoint enqueues a point for aggregation. Fire-and-forget: there is
// no back-pressure on producers.
func (a *Aggregator) AddPoint(p AggregatorPoint) {
	if !a.enabled {
		return
	}
	select {
	case a.cmdCh <- addPointCmd{p}:
	default:
		log.Printf("aggregator: dropping point on the floor, command queue full")
	}
}

// AddOffset enqueues an offset snapshot for aggregation.
func (a *Aggregator) AddOffset(o AggregatorOffset) {
	if !a.enabled {
		return
	}
	select {
	case a.cmdCh <- addOffsetCmd{o}:
	default:
		log.Printf("aggregator: dropping offset on the floor, command queue full")
	}
}

// Start launches the actor goroutine. No-op in disabled mode.
func (a *Aggregator) Start() {
	if !a.enabled {
		return
	}
	a.wg.Add(1)
	go a.run()
}

// Stop requests a graceful shutdown: the actor performs one final
// synchronous flush of every bucket (current and past alike) before
// exiting. No-op in disabled mode.
//
// cmdCh is deliberately never closed: AddPoint/AddOffset may be called
// concurrently from arbitrary producer goroutines, and a close racing
// with their select-send would panic. Shutdown is instead just another
// command traveling through the same channel as everything else.
func (a *Aggregator) Stop() {
	if !a.enabled {
		return
	}
	a.cmdCh <- stopCmd{}
	a.wg.Wait()
}

func (a *Aggregator) run() {
	defer a.wg.Done()

	current := make(map[uint64]*Bucket)
	origin := make(map[uint64]*Bucket)

	flushCh := make(chan time.Time, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		// NB: a time.Ticker will not stay aligned on a multiple of
		// duration if the system clock is adjusted; this stays
		// aligned by re-deriving the sleep on every iteration.
		for {
			clock := time.Now()
			select {
			case <-time.After(clock.Truncate(a.FlushInterval).Add(a.FlushInterval).Sub(clock)):
			case <-done:
				return
			}
			select {
			case flushCh <- time.Now():
			default:
				log.Printf("aggregator: dropping flush timer tick on the floor - busy system?")
			}
		}
	}()

	log.Printf("aggregator: started.")

	for {
		// Non-blocking check first so a pending flush tick is never
		// starved by a burst of add commands on cmdCh.
		select {
		case now := <-flushCh:
			a.flush(current, origin, uint64(now.UnixNano()))
		default:
		}

		select {
		case now := <-flushCh:
			a.flush(current, origin, uint64(now.UnixNano()))
		case cmd := <-a.cmdCh:
			if _, stop := cmd.(stopCmd); stop {
				log.Printf("aggregator: stop received, performing final flush")
				a.finalFlush(current, origin)
				return
			}
			a.process(current, origin, cmd)
		}
	}
}

func (a *Aggregator) process(current, origin map[uint64]*Bucket, cmd interface{}) {
	switch c := cmd.(type) {
	case addPointCmd:
		a.addPoint(current, origin, c.p)
	case addOffsetCmd:
		a.addOffset(current, c.o)
	}
}

func (a *Aggregator) addPoint(current, origin map[uint64]*Bucket, p AggregatorPoint) {
	currentKey := align(p.TimestampNs, BucketDuration)
	originKey := align(p.TimestampNs-p.PathwayLatencyNs, BucketDuration)

	cb, ok := current[currentKey]
	if !ok {
		cb = newBucket(currentKey)
		current[currentKey] = cb
	}
	ob, ok := origin[originKey]
	if !ok {
		ob = newBucket(originKey)
		origin[originKey] = ob
	}

	pathwaySeconds := clampNonNegative(float64(p.PathwayLatencyNs) / 1e9)
	edgeSeconds := clampNonNegative(float64(p.EdgeLatencyNs) / 1e9)

	cg := cb.upsertGroup(p)
	cg.PathwayLatencySketch.Add(pathwaySeconds, 1)
	cg.EdgeLatencySketch.Add(edgeSeconds, 1)

	og := ob.upsertGroup(p)
	og.PathwayLatencySketch.Add(pathwaySeconds, 1)
	og.EdgeLatencySketch.Add(edgeSeconds, 1)
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func (a *Aggregator) addOffset(current map[uint64]*Bucket, o AggregatorOffset) {
	key := align(o.TimestampNs, BucketDuration)
	b, ok := current[key]
	if !ok {
		b = newBucket(key)
		current[key] = b
	}
	b.upsertOffset(o)
}

func (a *Aggregator) flush(current, origin map[uint64]*Bucket, now uint64) {
	pastCurrent := partitionBuckets(current, now)
	pastOrigin := partitionBuckets(origin, now)
	a.encodeAndSend(pastCurrent, pastOrigin)
}

// finalFlush is used on graceful shutdown: every bucket is flushed
// regardless of whether its window has elapsed.
func (a *Aggregator) finalFlush(current, origin map[uint64]*Bucket) {
	drain := func(m map[uint64]*Bucket) []*Bucket {
		out := make([]*Bucket, 0, len(m))
		for k, b := range m {
			out = append(out, b)
			delete(m, k)
		}
		return out
	}
	a.encodeAndSend(drain(current), drain(origin))
}

func (a *Aggregator) encodeAndSend(pastCurrent, pastOrigin []*Bucket) {
	if len(pastCurrent) == 0 && len(pastOrigin) == 0 {
		return
	}

	buckets := append(buildStatsBuckets(pastCurrent, timestampCurrent), buildStatsBuckets(pastOrigin, timestampOrigin)...)
	if len(buckets) == 0 {
		return
	}

	payload, err := encodePayload(a.Env, a.Service, a.PrimaryTag, a.TracerVersion, a.Lang, buckets)
	if err != nil {
		log.Printf("aggregator: failed to encode payload: %v", err)
		a.counters.incFlushErrors()
		return
	}

	a.counters.incPayloadsIn()
	flushedBuckets := uint64(len(pastCurrent) + len(pastOrigin))

	// Only the send runs off the critical path, so add never blocks on
	// I/O; building and encoding the payload above happen on the actor
	// goroutine. Only the counters are visible back to the actor.
	go func() {
		if err := a.transport.SendPipelineStats(payload); err != nil {
			log.Printf("aggregator: flush failed: %v", err)
			a.counters.incFlushErrors()
			return
		}
		a.counters.incFlushedPayloads()
		a.counters.addFlushedBuckets(flushedBuckets)
	}()
}
