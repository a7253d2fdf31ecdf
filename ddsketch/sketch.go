package ddsketch

import "fmt"

// DefaultRelativeAccuracy is the accuracy used when a caller does not
// need a custom one; it matches the reference implementation's default.
const DefaultRelativeAccuracy = 0.01

// Sketch is a quantile sketch over positive, negative, and zero values,
// each partition bounded to DefaultRelativeAccuracy (or whatever accuracy
// the mapping was built with).
type Sketch struct {
	mapping       *IndexMapping
	positiveStore *DenseStore
	negativeStore *DenseStore
	zeroCount     float64
}

// New returns an empty sketch using the default relative accuracy.
func New() *Sketch {
	s, err := NewWithAccuracy(DefaultRelativeAccuracy)
	if err != nil {
		// DefaultRelativeAccuracy is a constant known to be valid.
		panic(err)
	}
	return s
}

// NewWithAccuracy returns an empty sketch targeting the given relative
// accuracy.
func NewWithAccuracy(alpha float64) (*Sketch, error) {
	m, err := NewLogarithmicMapping(alpha)
	if err != nil {
		return nil, err
	}
	return &Sketch{
		mapping:       m,
		positiveStore: NewDenseStore(),
		negativeStore: NewDenseStore(),
	}, nil
}

// Mapping returns the sketch's index mapping.
func (s *Sketch) Mapping() *IndexMapping { return s.mapping }

// Add inserts count c (c >= 0) of value v into the sketch.
func (s *Sketch) Add(v float64, c float64) {
	if c < 0 {
		panic("ddsketch: negative count added to sketch")
	}
	if c == 0 {
		return
	}
	switch {
	case v > 0:
		s.positiveStore.Add(s.mapping.Index(v), c)
	case v < 0:
		s.negativeStore.Add(s.mapping.Index(-v), c)
	default:
		s.zeroCount += c
	}
}

// Count returns the total number of values inserted.
func (s *Sketch) Count() float64 {
	return s.zeroCount + s.positiveStore.TotalCount() + s.negativeStore.TotalCount()
}

// Empty reports whether nothing has been added to the sketch.
func (s *Sketch) Empty() bool {
	return s.Count() == 0
}

// GetValueAtQuantile returns the approximate value at quantile q, q in
// [0, 1]. Undefined (returns an error) on an empty sketch.
func (s *Sketch) GetValueAtQuantile(q float64) (float64, error) {
	if q < 0 || q > 1 {
		panic(fmt.Sprintf("ddsketch: quantile %v out of range [0, 1]", q))
	}
	n := s.Count()
	if n == 0 {
		return 0, fmt.Errorf("ddsketch: quantile of an empty sketch is undefined")
	}
	rank := q * (n - 1)

	if negCount := s.negativeStore.TotalCount(); rank < negCount {
		// Walk the negative store from its high end: the largest
		// negative-magnitude bucket holds the smallest values.
		reversedRank := negCount - 1 - rank
		i := s.negativeStore.KeyAtRank(reversedRank)
		return -s.mapping.Value(i), nil
	}
	rank -= s.negativeStore.TotalCount()

	if rank < s.zeroCount {
		return 0, nil
	}
	rank -= s.zeroCount

	i := s.positiveStore.KeyAtRank(rank)
	return s.mapping.Value(i), nil
}

// PositiveStore, NegativeStore and ZeroCount expose the raw partitions,
// primarily for wire encoding.
func (s *Sketch) PositiveStore() *DenseStore { return s.positiveStore }
func (s *Sketch) NegativeStore() *DenseStore { return s.negativeStore }
func (s *Sketch) ZeroCount() float64         { return s.zeroCount }
