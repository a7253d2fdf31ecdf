package aggregator

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tgres/tgres/ddsketch"
)

func TestEncodePayloadRoundTripsThroughMsgpack(t *testing.T) {
	s := ddsketch.New()
	s.Add(1.5, 1)
	blob := encodeSketchProto(s)
	if len(blob) == 0 {
		t.Fatal("expected non-empty protobuf bytes")
	}

	buckets := []statsBucket{{
		start:    1_678_471_420_000_000_000,
		duration: BucketDuration,
		stats: []statsPoint{{
			edgeTags:       []string{"topic:orders"},
			hash:           42,
			parentHash:     7,
			pathwayLatency: blob,
			edgeLatency:    blob,
			tsType:         timestampCurrent,
		}},
		backlogs: []backlogEntry{{tags: []string{"partition:0"}, value: 13}},
	}}

	payload, err := encodePayload("prod", "checkout", "", "1.0.0", "Go", buckets)
	if err != nil {
		t.Fatalf("encodePayload failed: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("expected non-empty payload bytes")
	}

	var decoded map[string]interface{}
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("msgpack.Unmarshal failed: %v", err)
	}
	if decoded["Env"] != "prod" || decoded["Service"] != "checkout" || decoded["Lang"] != "Go" {
		t.Fatalf("unexpected decoded envelope: %+v", decoded)
	}
	if stats, ok := decoded["Stats"].([]interface{}); !ok || len(stats) != 1 {
		t.Fatalf("decoded Stats = %#v, want one bucket", decoded["Stats"])
	}
}

func TestEncodeSketchProtoNonEmptyForEmptySketch(t *testing.T) {
	s := ddsketch.New()
	blob := encodeSketchProto(s)
	if len(blob) == 0 {
		t.Fatal("even an empty sketch encodes a mapping and zero counters")
	}
}

func TestBuildStatsBucketsLabelsTimestampType(t *testing.T) {
	b := newBucket(0)
	b.upsertGroup(AggregatorPoint{Hash: 1})

	sb := buildStatsBuckets([]*Bucket{b}, timestampOrigin)
	if len(sb) != 1 || len(sb[0].stats) != 1 {
		t.Fatalf("unexpected stats buckets: %+v", sb)
	}
	if sb[0].stats[0].tsType != timestampOrigin {
		t.Fatalf("tsType = %v, want origin", sb[0].stats[0].tsType)
	}
}
