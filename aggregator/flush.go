package aggregator

import (
	"sort"

	"github.com/tgres/tgres/pathway"
)

// flushable reports whether a bucket started at start is eligible to be
// flushed at wall-clock now. The reference "current?" predicate reads
// "start > now + D", which taken literally would call every past
// bucket "not current" and every far-future bucket "current" — the
// opposite of its name (see the open question this resolves). We treat
// the intended semantics as: a bucket is flushable once it can no
// longer receive on-time points, i.e. once its window has fully
// elapsed.
func flushable(start, now, duration uint64) bool {
	return now >= start+duration
}

// partitionBuckets removes the flushable buckets from m and returns them;
// the still-open buckets stay in m.
func partitionBuckets(m map[uint64]*Bucket, now uint64) (past []*Bucket) {
	for start, b := range m {
		if flushable(start, now, b.Duration) {
			past = append(past, b)
			delete(m, start)
		}
	}
	return past
}

// buildStatsBuckets converts raw Buckets into the wire-shaped
// statsBucket records, labelling every point by which map (current or
// origin) it came from.
func buildStatsBuckets(buckets []*Bucket, tsType timestampType) []statsBucket {
	out := make([]statsBucket, 0, len(buckets))
	for _, b := range buckets {
		sb := statsBucket{start: b.Start, duration: b.Duration}
		for _, g := range b.Groups {
			sb.stats = append(sb.stats, statsPoint{
				edgeTags:       pathwayTagStrings(g.EdgeTags),
				hash:           g.Hash,
				parentHash:     g.ParentHash,
				pathwayLatency: encodeSketchProto(g.PathwayLatencySketch),
				edgeLatency:    encodeSketchProto(g.EdgeLatencySketch),
				tsType:         tsType,
			})
		}
		for _, e := range b.CommitOffsets {
			sb.backlogs = append(sb.backlogs, backlogEntry{
				tags:  sortedTagStrings(e.offset.Tags),
				value: e.offset.Offset,
			})
		}
		for _, e := range b.ProduceOffsets {
			sb.backlogs = append(sb.backlogs, backlogEntry{
				tags:  sortedTagStrings(e.offset.Tags),
				value: e.offset.Offset,
			})
		}
		out = append(out, sb)
	}
	return out
}

func pathwayTagStrings(tags []pathway.Tag) []string {
	rendered := make([]string, 0, len(tags))
	for _, t := range tags {
		rendered = append(rendered, t.Key+":"+t.Value)
	}
	sort.Strings(rendered)
	return rendered
}
