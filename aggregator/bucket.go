// Package aggregator accumulates AggregatorPoint and AggregatorOffset
// records into fixed-width time buckets and flushes completed windows
// to a Transport as a MessagePack/Protobuf payload.
package aggregator

import (
	"sort"
	"strings"

	"github.com/tgres/tgres/ddsketch"
	"github.com/tgres/tgres/pathway"
)

// BucketDuration is the fixed width (D) of every time-bucketed window.
const BucketDuration = 10 * 1e9 // 10 seconds, in nanoseconds

// OffsetType distinguishes the two kinds of broker-side queue position
// snapshots carried alongside sketches.
type OffsetType int

const (
	OffsetCommit OffsetType = iota
	OffsetProduce
)

// AggregatorPoint is a single per-hop latency observation, produced by
// pathway.Checkpoint and consumed by the aggregator.
type AggregatorPoint struct {
	EdgeTags         []pathway.Tag
	Hash             uint64
	ParentHash       uint64
	PathwayLatencyNs uint64
	EdgeLatencyNs    uint64
	TimestampNs      uint64
}

// AggregatorOffset is a broker-side queue position snapshot.
type AggregatorOffset struct {
	Offset      int64
	TimestampNs uint64
	Type        OffsetType
	Tags        map[string]string
}

// tagIdentity canonicalizes a tag map into a stable, order-independent
// key so that upserts can compare "same tag set" by value rather than
// by map identity.
func tagIdentity(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
		b.WriteByte('\x00')
	}
	return b.String()
}

// sortedTagStrings renders a tag map as "k:v" strings sorted by key,
// the form used on the wire for backlog entries.
func sortedTagStrings(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + ":" + tags[k]
	}
	return out
}

// Group is the per-hash sub-accumulator inside a Bucket, holding the
// two latency sketches for every point sharing the same pathway hash.
type Group struct {
	EdgeTags            []pathway.Tag
	Hash                uint64
	ParentHash          uint64
	PathwayLatencySketch *ddsketch.Sketch
	EdgeLatencySketch    *ddsketch.Sketch
}

func newGroup(p AggregatorPoint) *Group {
	return &Group{
		EdgeTags:             p.EdgeTags,
		Hash:                 p.Hash,
		ParentHash:           p.ParentHash,
		PathwayLatencySketch: ddsketch.New(),
		EdgeLatencySketch:    ddsketch.New(),
	}
}

// offsetEntry pairs a canonicalized identity with the stored offset so
// that upsert can find and replace an existing entry in place.
type offsetEntry struct {
	identity string
	offset   AggregatorOffset
}

// Bucket is a Start-aligned window of width BucketDuration accumulating
// groups keyed by pathway hash, plus the latest commit/produce offset
// snapshots.
type Bucket struct {
	Start       uint64
	Duration    uint64
	Groups      map[uint64]*Group
	CommitOffsets  []offsetEntry
	ProduceOffsets []offsetEntry
}

func newBucket(start uint64) *Bucket {
	return &Bucket{
		Start:    start,
		Duration: BucketDuration,
		Groups:   make(map[uint64]*Group),
	}
}

// align rounds t down to the nearest multiple of d, satisfying
// invariant I1 (every Bucket.Start is a multiple of D).
func align(t uint64, d uint64) uint64 {
	return t - (t % d)
}

// upsertGroup returns the group keyed by p.Hash, creating it from p on
// first sight (invariant I2: parent_hash and hash are stable for the
// lifetime of the group).
func (b *Bucket) upsertGroup(p AggregatorPoint) *Group {
	g, ok := b.Groups[p.Hash]
	if !ok {
		g = newGroup(p)
		b.Groups[p.Hash] = g
	}
	return g
}

// upsertOffset replaces the entry with an identical tag identity if one
// exists, otherwise appends — invariant I4.
func (b *Bucket) upsertOffset(o AggregatorOffset) {
	list := &b.CommitOffsets
	if o.Type == OffsetProduce {
		list = &b.ProduceOffsets
	}
	id := tagIdentity(o.Tags)
	for i := range *list {
		if (*list)[i].identity == id {
			(*list)[i].offset = o
			return
		}
	}
	*list = append(*list, offsetEntry{identity: id, offset: o})
}

func (b *Bucket) commitOffsetCount() int  { return len(b.CommitOffsets) }
func (b *Bucket) produceOffsetCount() int { return len(b.ProduceOffsets) }
