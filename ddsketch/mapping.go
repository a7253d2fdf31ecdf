// Package ddsketch implements a logarithmic bucket mapping and a
// dense-store quantile sketch with bounded relative accuracy, following
// the mapping/store split of the DDSketch algorithm.
package ddsketch

import (
	"fmt"
	"math"
)

// IndexMapping maps a positive real value to a signed bucket index such
// that any two values landing in the same bucket differ by at most the
// configured relative accuracy.
//
// Only the logarithmic mapping (constant relative accuracy across the
// full range) is implemented; the capability set below is deliberately
// small so a second variant (e.g. a linearly-interpolated mapping) could
// be added without touching callers.
type IndexMapping struct {
	relativeAccuracy float64
	gamma            float64
	indexOffset      float64
	multiplier       float64 // 1 / ln(gamma)
}

// NewLogarithmicMapping builds a mapping for the given target relative
// accuracy. alpha must be in (0, 1); this is a configuration error and is
// reported rather than silently clamped.
func NewLogarithmicMapping(alpha float64) (*IndexMapping, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("ddsketch: relative accuracy %v out of range (0, 1)", alpha)
	}
	gamma := (1 + alpha) / (1 - alpha)
	return newLogarithmicMappingWithGamma(alpha, gamma, 0)
}

func newLogarithmicMappingWithGamma(alpha, gamma, indexOffset float64) (*IndexMapping, error) {
	if gamma <= 1 {
		return nil, fmt.Errorf("ddsketch: gamma %v must be > 1", gamma)
	}
	return &IndexMapping{
		relativeAccuracy: alpha,
		gamma:            gamma,
		indexOffset:      indexOffset,
		multiplier:       1 / math.Log(gamma),
	}, nil
}

// RelativeAccuracy returns the accuracy this mapping was built with.
func (m *IndexMapping) RelativeAccuracy() float64 { return m.relativeAccuracy }

// Gamma returns the mapping's growth factor, part of the wire mapping proto.
func (m *IndexMapping) Gamma() float64 { return m.gamma }

// IndexOffset returns the mapping's index offset, part of the wire mapping proto.
func (m *IndexMapping) IndexOffset() float64 { return m.indexOffset }

// Index maps v to its bucket index. v must be strictly positive; callers
// are responsible for routing zero and negative values elsewhere (see
// Sketch.Add).
func (m *IndexMapping) Index(v float64) int {
	x := math.Log(v) * m.multiplier
	idx := int(math.Floor(x))
	return idx
}

// LowerBound returns the lower bound of the bucket at index i.
func (m *IndexMapping) LowerBound(i int) float64 {
	return math.Exp((float64(i) - m.indexOffset) / m.multiplier)
}

// Value returns the representative value of the bucket at index i,
// centered so that it is within the configured relative accuracy of any
// input that would have mapped to i.
func (m *IndexMapping) Value(i int) float64 {
	alphaEff := 1 - 2/(1+m.gamma)
	return m.LowerBound(i) * (1 + alphaEff)
}

// Equals reports whether two mappings agree closely enough (gamma and
// indexOffset within 1e-12 relative tolerance) to be treated as the same
// mapping, e.g. when deciding whether two sketches can be merged.
func (m *IndexMapping) Equals(other *IndexMapping) bool {
	if other == nil {
		return false
	}
	return closeEnough(m.gamma, other.gamma) && closeEnough(m.indexOffset, other.indexOffset)
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	tolerance := 1e-12 * math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= tolerance
}
