package aggregator

import (
	"sync"
	"testing"
	"time"
)

type recordingTransport struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (r *recordingTransport) SendPipelineStats(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestDisabledAggregatorDiscardsSilently(t *testing.T) {
	tr := &recordingTransport{}
	a := New("svc", "env", "", "1.0", "Go", tr, false)
	a.Start() // no-op
	a.AddPoint(AggregatorPoint{Hash: 1, TimestampNs: uint64(time.Now().UnixNano())})
	a.Stop() // no-op, must not deadlock
	if tr.count() != 0 {
		t.Fatal("disabled aggregator must never reach the transport")
	}
}

func TestFinalFlushOnStopDeliversPendingPoints(t *testing.T) {
	tr := &recordingTransport{}
	a := New("svc", "env", "", "1.0", "Go", tr, true)
	a.FlushInterval = time.Hour // keep the timer from firing during the test
	a.Start()

	now := uint64(time.Now().UnixNano())
	a.AddPoint(AggregatorPoint{
		Hash:             123,
		ParentHash:       0,
		PathwayLatencyNs: 1_000_000_000,
		EdgeLatencyNs:    500_000_000,
		TimestampNs:      now,
	})

	a.Stop()

	// Stop() only guarantees the actor goroutine has exited and the
	// payload has been handed to the transport goroutine; give the
	// detached send a moment to land.
	deadline := time.Now().Add(time.Second)
	for tr.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if tr.count() != 1 {
		t.Fatalf("transport received %d payloads, want 1", tr.count())
	}
}

func TestEmptyFlushNeverReachesTransport(t *testing.T) {
	tr := &recordingTransport{}
	a := New("svc", "env", "", "1.0", "Go", tr, true)
	a.FlushInterval = time.Hour
	a.Start()
	a.Stop()
	if tr.count() != 0 {
		t.Fatal("an empty payload must never be flushed")
	}
}

func TestAddPointUpdatesBothBucketMaps(t *testing.T) {
	a := New("svc", "env", "", "1.0", "Go", NopTransport{}, true)
	current := make(map[uint64]*Bucket)
	origin := make(map[uint64]*Bucket)

	p := AggregatorPoint{
		Hash:             1,
		TimestampNs:      1_678_471_420_000_000_000,
		PathwayLatencyNs: 10_000_000_000,
		EdgeLatencyNs:    2_000_000_000,
	}
	a.addPoint(current, origin, p)

	if len(current) != 1 || len(origin) != 1 {
		t.Fatalf("expected exactly one bucket in each map, got %d/%d", len(current), len(origin))
	}
	for k := range current {
		if k != 1_678_471_420_000_000_000 {
			t.Fatalf("current bucket key = %d, want 1678471420000000000", k)
		}
	}
	for k := range origin {
		if k != 1_678_471_410_000_000_000 {
			t.Fatalf("origin bucket key = %d, want 1678471410000000000", k)
		}
	}
}

func TestClampNonNegative(t *testing.T) {
	if clampNonNegative(-0.5) != 0 {
		t.Fatal("negative latency after float normalization must clamp to 0")
	}
	if clampNonNegative(2.5) != 2.5 {
		t.Fatal("positive value must pass through unchanged")
	}
}

func TestFlushableSemantics(t *testing.T) {
	// The bucket becomes flushable once its window has fully elapsed:
	// now >= start + duration.
	if flushable(100, 100+BucketDuration-1, BucketDuration) {
		t.Fatal("bucket should not be flushable one ns before its window elapses")
	}
	if !flushable(100, 100+BucketDuration, BucketDuration) {
		t.Fatal("bucket should be flushable exactly when its window elapses")
	}
}
