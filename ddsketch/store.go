package ddsketch

import "math"

// arrayLengthOverhead and arrayLengthGrowthIncrement bound how
// aggressively the dense store's backing array grows: every reallocation
// leaves arrayLengthOverhead slots of headroom on top of what is strictly
// needed, then rounds the total up by growthIncrement so that a
// long-running sketch that drifts slowly does not reallocate on every
// single insert.
const (
	arrayLengthOverhead        = 64
	arrayLengthGrowthIncrement = 0.1
)

// DenseStore is a contiguous, dynamically-resized array of counters
// addressed by logical bucket index. It never shrinks; the backing array
// only grows or is recentered in place.
type DenseStore struct {
	bins       []float64
	offset     int
	minIndex   int
	maxIndex   int
	totalCount float64
}

// NewDenseStore returns an empty store.
func NewDenseStore() *DenseStore {
	return &DenseStore{minIndex: math.MaxInt64, maxIndex: math.MinInt64}
}

// Empty reports whether the store has never received a nonzero count.
func (s *DenseStore) Empty() bool { return s.totalCount == 0 }

// TotalCount returns the sum of every counter ever added.
func (s *DenseStore) TotalCount() float64 { return s.totalCount }

// MinIndex returns the smallest logical index with a nonzero counter.
// Only meaningful when !Empty().
func (s *DenseStore) MinIndex() int { return s.minIndex }

// MaxIndex returns the largest logical index with a nonzero counter.
// Only meaningful when !Empty().
func (s *DenseStore) MaxIndex() int { return s.maxIndex }

// Add increments the counter at logical index i by c. A zero count is a
// no-op; c must not be negative.
func (s *DenseStore) Add(i int, c float64) {
	if c == 0 {
		return
	}
	if c < 0 {
		panic("ddsketch: negative count added to store")
	}
	arrIdx := s.normalize(i)
	s.bins[arrIdx] += c
	s.totalCount += c
}

// normalize ensures i is addressable, extending/recentering the backing
// array if necessary, and returns i's array index.
func (s *DenseStore) normalize(i int) int {
	if i < s.minIndex || i > s.maxIndex {
		s.extendRange(i, i)
	}
	return i - s.offset
}

func (s *DenseStore) extendRange(newMin, newMax int) {
	if newMin > s.minIndex {
		newMin = s.minIndex
	}
	if newMax < s.maxIndex {
		newMax = s.maxIndex
	}

	if s.Empty() {
		length := newArrayLength(newMax - newMin + 1)
		s.bins = make([]float64, length)
		s.offset = newMin
		s.minIndex = newMin
		s.maxIndex = newMax
		s.centerCounts(newMin, newMax)
		return
	}

	if newMin >= s.offset && newMax < s.offset+len(s.bins) {
		s.minIndex = newMin
		s.maxIndex = newMax
		return
	}

	length := newArrayLength(newMax - newMin + 1)
	if length > len(s.bins) {
		grown := make([]float64, length)
		copy(grown, s.bins)
		s.bins = grown
	}
	s.centerCounts(newMin, newMax)
}

func (s *DenseStore) centerCounts(newMin, newMax int) {
	mid := newMin + (newMax-newMin+1)/2
	shift := s.offset + len(s.bins)/2 - mid
	s.shiftCounts(shift)
	s.minIndex = newMin
	s.maxIndex = newMax
}

func (s *DenseStore) shiftCounts(shift int) {
	minArr := s.minIndex - s.offset
	maxArr := s.maxIndex - s.offset
	if minArr > maxArr {
		// nothing stored yet
		s.offset -= shift
		return
	}
	copy(s.bins[minArr+shift:maxArr+shift+1], s.bins[minArr:maxArr+1])
	if shift > 0 {
		zeroFill(s.bins, minArr, minArr+shift)
	} else if shift < 0 {
		zeroFill(s.bins, maxArr+shift+1, maxArr+1)
	}
	s.offset -= shift
}

func zeroFill(bins []float64, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(bins) {
		to = len(bins)
	}
	for i := from; i < to; i++ {
		bins[i] = 0
	}
}

func newArrayLength(desired int) int {
	chunks := math.Ceil(float64(desired+arrayLengthOverhead-1) / float64(arrayLengthOverhead))
	length := chunks * arrayLengthOverhead
	length *= 1 + arrayLengthGrowthIncrement
	return int(math.Ceil(length))
}

// KeyAtRank walks bins in ascending logical-index order accumulating a
// running count, and returns the logical index of the bin containing
// rank r (0-based). A negative rank is treated as 0. If no bin's
// cumulative count exceeds r, MaxIndex is returned.
func (s *DenseStore) KeyAtRank(r float64) int {
	if r < 0 {
		r = 0
	}
	var n float64
	if !s.Empty() {
		for i := s.minIndex; i <= s.maxIndex; i++ {
			n += s.bins[i-s.offset]
			if n > r {
				return i
			}
		}
	}
	return s.maxIndex
}

// WireBins re-centers the live range to bin index 0 and returns it along
// with the logical index that array position 0 corresponds to
// (contiguous_bin_index_offset in the wire schema).
func (s *DenseStore) WireBins() (bins []float64, indexOffset int) {
	if s.Empty() {
		return nil, 0
	}
	length := s.maxIndex - s.minIndex + 1
	out := make([]float64, length)
	copy(out, s.bins[s.minIndex-s.offset:s.maxIndex-s.offset+1])
	return out, s.minIndex
}

// Reweight multiplies every counter, and the total count, by w. w must be
// strictly positive.
func (s *DenseStore) Reweight(w float64) {
	if w <= 0 {
		panic("ddsketch: reweight factor must be positive")
	}
	if s.Empty() {
		return
	}
	for i := s.minIndex - s.offset; i <= s.maxIndex-s.offset; i++ {
		s.bins[i] *= w
	}
	s.totalCount *= w
}
