package aggregator

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// timestampType labels which of the two per-point windows (current or
// origin) a StatsPoint was produced from.
type timestampType string

const (
	timestampCurrent timestampType = "current"
	timestampOrigin  timestampType = "origin"
)

type statsPoint struct {
	edgeTags       []string
	hash           uint64
	parentHash     uint64
	pathwayLatency []byte
	edgeLatency    []byte
	tsType         timestampType
}

type backlogEntry struct {
	tags  []string
	value int64
}

type statsBucket struct {
	start    uint64
	duration uint64
	stats    []statsPoint
	backlogs []backlogEntry
}

// encodePayload MessagePack-encodes a flush payload as a six-field map
// with fixed field order; this order is the wire contract and must
// never be reordered.
func encodePayload(env, service, primaryTag, tracerVersion, lang string, buckets []statsBucket) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeMapLen(6); err != nil {
		return nil, err
	}
	if err := encodeKV(enc, "Env", env); err != nil {
		return nil, err
	}
	if err := encodeKV(enc, "Service", service); err != nil {
		return nil, err
	}
	if err := encodeKV(enc, "PrimaryTag", primaryTag); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("Stats"); err != nil {
		return nil, err
	}
	if err := encodeStatsBuckets(enc, buckets); err != nil {
		return nil, err
	}
	if err := encodeKV(enc, "TracerVersion", tracerVersion); err != nil {
		return nil, err
	}
	if err := encodeKV(enc, "Lang", lang); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeKV(enc *msgpack.Encoder, key, value string) error {
	if err := enc.EncodeString(key); err != nil {
		return err
	}
	return enc.EncodeString(value)
}

func encodeStatsBuckets(enc *msgpack.Encoder, buckets []statsBucket) error {
	if err := enc.EncodeArrayLen(len(buckets)); err != nil {
		return err
	}
	for _, sb := range buckets {
		if err := enc.EncodeMapLen(4); err != nil {
			return err
		}
		if err := enc.EncodeString("Start"); err != nil {
			return err
		}
		if err := enc.EncodeUint(sb.start); err != nil {
			return err
		}
		if err := enc.EncodeString("Duration"); err != nil {
			return err
		}
		if err := enc.EncodeUint(sb.duration); err != nil {
			return err
		}
		if err := enc.EncodeString("Stats"); err != nil {
			return err
		}
		if err := encodeStatsPoints(enc, sb.stats); err != nil {
			return err
		}
		if err := enc.EncodeString("Backlogs"); err != nil {
			return err
		}
		if err := encodeBacklogs(enc, sb.backlogs); err != nil {
			return err
		}
	}
	return nil
}

func encodeStatsPoints(enc *msgpack.Encoder, points []statsPoint) error {
	if err := enc.EncodeArrayLen(len(points)); err != nil {
		return err
	}
	for _, p := range points {
		if err := enc.EncodeMapLen(7); err != nil {
			return err
		}
		if err := encodeKV(enc, "Service", ""); err != nil {
			return err
		}
		if err := enc.EncodeString("EdgeTags"); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(p.edgeTags)); err != nil {
			return err
		}
		for _, t := range p.edgeTags {
			if err := enc.EncodeString(t); err != nil {
				return err
			}
		}
		if err := enc.EncodeString("Hash"); err != nil {
			return err
		}
		if err := enc.EncodeUint(p.hash); err != nil {
			return err
		}
		if err := enc.EncodeString("ParentHash"); err != nil {
			return err
		}
		if err := enc.EncodeUint(p.parentHash); err != nil {
			return err
		}
		if err := enc.EncodeString("PathwayLatency"); err != nil {
			return err
		}
		if err := enc.EncodeBytes(p.pathwayLatency); err != nil {
			return err
		}
		if err := enc.EncodeString("EdgeLatency"); err != nil {
			return err
		}
		if err := enc.EncodeBytes(p.edgeLatency); err != nil {
			return err
		}
		if err := encodeKV(enc, "TimestampType", string(p.tsType)); err != nil {
			return err
		}
	}
	return nil
}

func encodeBacklogs(enc *msgpack.Encoder, backlogs []backlogEntry) error {
	if err := enc.EncodeArrayLen(len(backlogs)); err != nil {
		return err
	}
	for _, bl := range backlogs {
		if err := enc.EncodeMapLen(2); err != nil {
			return err
		}
		if err := enc.EncodeString("Tags"); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(bl.tags)); err != nil {
			return err
		}
		for _, t := range bl.tags {
			if err := enc.EncodeString(t); err != nil {
				return err
			}
		}
		if err := enc.EncodeString("Value"); err != nil {
			return err
		}
		if err := enc.EncodeInt(bl.value); err != nil {
			return err
		}
	}
	return nil
}
