package ddsketch

import (
	"math"
	"testing"
)

func TestSketchEmptyQuantileUndefined(t *testing.T) {
	s := New()
	if _, err := s.GetValueAtQuantile(0.5); err == nil {
		t.Fatal("quantile of an empty sketch must be an error")
	}
}

func TestSketchQuantileOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range quantile")
		}
	}()
	s := New()
	s.Add(1, 1)
	s.GetValueAtQuantile(1.5)
}

func TestSketchZeroAndNegativeCount(t *testing.T) {
	s := New()
	s.Add(0, 5)
	if s.Count() != 5 {
		t.Fatalf("Count() = %v, want 5", s.Count())
	}
	q, err := s.GetValueAtQuantile(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if q != 0 {
		t.Fatalf("quantile of all-zero sketch = %v, want 0", q)
	}
}

func TestSketchAddNegativeCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative count")
		}
	}()
	New().Add(5, -1)
}

func TestSketchQuantileWithinBounds(t *testing.T) {
	s := New()
	values := []float64{-50, -10, -1, 0, 0.5, 1, 5, 10, 100, 1000}
	for _, v := range values {
		s.Add(v, 1)
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	for _, q := range []float64{0, 0.1, 0.5, 0.9, 1.0} {
		got, err := s.GetValueAtQuantile(q)
		if err != nil {
			t.Fatal(err)
		}
		// bounded relative accuracy on top of true min/max
		lowerBound := min - 0.05*math.Abs(min) - 1e-6
		upperBound := max + 0.05*math.Abs(max) + 1e-6
		if got < lowerBound || got > upperBound {
			t.Fatalf("q=%v got=%v outside [%v, %v]", q, got, lowerBound, upperBound)
		}
	}
}

func TestSketchCountInvariant(t *testing.T) {
	s := New()
	s.Add(0, 2)
	s.Add(3.5, 4)
	s.Add(-3.5, 1)
	want := s.ZeroCount() + s.PositiveStore().TotalCount() + s.NegativeStore().TotalCount()
	if s.Count() != want {
		t.Fatalf("Count() = %v, want sum of partitions %v", s.Count(), want)
	}
	if s.Count() != 7 {
		t.Fatalf("Count() = %v, want 7", s.Count())
	}
}

func TestSketchOrderingNegativeZeroPositive(t *testing.T) {
	s := New()
	s.Add(-100, 1)
	s.Add(0, 1)
	s.Add(100, 1)

	lo, err := s.GetValueAtQuantile(0)
	if err != nil {
		t.Fatal(err)
	}
	if lo >= 0 {
		t.Fatalf("q=0 should land in the negative partition, got %v", lo)
	}

	hi, err := s.GetValueAtQuantile(1)
	if err != nil {
		t.Fatal(err)
	}
	if hi <= 0 {
		t.Fatalf("q=1 should land in the positive partition, got %v", hi)
	}
}
