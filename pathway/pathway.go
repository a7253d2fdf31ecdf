// Package pathway derives and propagates the per-message pathway identity
// used to compute latency between adjacent service hops.
package pathway

import (
	"math/rand"
	"time"
)

// Pathway is an immutable identifier for one hop in a message's journey.
// The zero value is the "empty" pathway (no hops yet).
type Pathway struct {
	Hash           uint64
	PathwayStartNs uint64
	EdgeStartNs    uint64
}

// Empty is the zero-valued pathway used as the root of any chain.
var Empty = Pathway{}

// IsEmpty reports whether p carries no hop information.
func (p Pathway) IsEmpty() bool {
	return p == Empty
}

// Point is what a checkpoint emits for the aggregator to accumulate.
type Point struct {
	EdgeTags         []Tag
	Hash             uint64
	ParentHash       uint64
	PathwayLatencyNs uint64
	EdgeLatencyNs    uint64
	TimestampNs      uint64
}

// Checkpoint advances prev by one hop, returning the new pathway and the
// point to feed into the aggregator. now is the current time in
// nanoseconds since the Unix epoch. If prev is the empty pathway, the
// call context is treated as an origin: a synthetic pathway anchored at
// now is created first, and the checkpoint proceeds from it.
func Checkpoint(prev Pathway, service, env, primaryTag string, tags []Tag, now uint64) (Pathway, Point) {
	if prev.IsEmpty() {
		prev = Pathway{Hash: 0, PathwayStartNs: now, EdgeStartNs: now}
	}

	nodeHash := NodeHash(service, env, primaryTag, tags)
	newHash := PathwayHash(nodeHash, prev.Hash)

	next := Pathway{
		Hash:           newHash,
		PathwayStartNs: prev.PathwayStartNs,
		EdgeStartNs:    now,
	}

	point := Point{
		EdgeTags:         FilterEdgeTags(tags),
		Hash:             newHash,
		ParentHash:       prev.Hash,
		PathwayLatencyNs: now - prev.PathwayStartNs,
		EdgeLatencyNs:    now - prev.EdgeStartNs,
		TimestampNs:      prev.PathwayStartNs,
	}

	return next, point
}

// CheckpointCached behaves exactly like Checkpoint, except the node hash
// is looked up in cache instead of always being recomputed. Integrations
// that checkpoint the same (service, env, primaryTag, tag set) combination
// at high frequency (e.g. a hot Kafka consumer loop) should hold one
// long-lived *HashCache and pass it here instead of calling Checkpoint.
func CheckpointCached(cache *HashCache, prev Pathway, service, env, primaryTag string, tags []Tag, now uint64) (Pathway, Point) {
	if prev.IsEmpty() {
		prev = Pathway{Hash: 0, PathwayStartNs: now, EdgeStartNs: now}
	}

	nodeHash := cache.NodeHash(service, env, primaryTag, tags)
	newHash := PathwayHash(nodeHash, prev.Hash)

	next := Pathway{
		Hash:           newHash,
		PathwayStartNs: prev.PathwayStartNs,
		EdgeStartNs:    now,
	}

	point := Point{
		EdgeTags:         FilterEdgeTags(tags),
		Hash:             newHash,
		ParentHash:       prev.Hash,
		PathwayLatencyNs: now - prev.PathwayStartNs,
		EdgeLatencyNs:    now - prev.EdgeStartNs,
		TimestampNs:      prev.PathwayStartNs,
	}

	return next, point
}

// Now returns the current time in nanoseconds since the Unix epoch, the
// clock source Checkpoint expects.
func Now() uint64 {
	return uint64(time.Now().UnixNano())
}

// Merge implements the "pick one" policy for combining pathways observed
// from multiple inbound edges (e.g. a fan-in consumer): the empty list
// merges to the empty pathway, a single-element list merges to itself,
// and anything larger picks a uniformly random element. Callers that need
// a deterministic merge must arrange not to have more than one inbound
// pathway.
func Merge(pathways []Pathway) Pathway {
	switch len(pathways) {
	case 0:
		return Empty
	case 1:
		return pathways[0]
	default:
		return pathways[rand.Intn(len(pathways))]
	}
}
