package aggregator

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tgres/tgres/ddsketch"
)

// Field numbers for the DDSketch wire schema described in the payload
// spec: DDSketch{mapping, positiveValues, negativeValues, zeroCount},
// IndexMapping{gamma, indexOffset, interpolation}, Store{contiguousBinCounts,
// contiguousBinIndexOffset}.
const (
	fieldSketchMapping        = 1
	fieldSketchPositiveValues = 2
	fieldSketchNegativeValues = 3
	fieldSketchZeroCount      = 4

	fieldMappingGamma         = 1
	fieldMappingIndexOffset   = 2
	fieldMappingInterpolation = 3

	fieldStoreContiguousBinCounts      = 1
	fieldStoreContiguousBinIndexOffset = 2

	interpolationNone = 0
)

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func encodeMapping(m *ddsketch.IndexMapping) []byte {
	var b []byte
	b = appendDouble(b, fieldMappingGamma, m.Gamma())
	b = appendDouble(b, fieldMappingIndexOffset, m.IndexOffset())
	b = appendVarint(b, fieldMappingInterpolation, interpolationNone)
	return b
}

func encodeStore(s *ddsketch.DenseStore) []byte {
	bins, offset := s.WireBins()

	// contiguousBinCounts is a packed repeated double: one length-delimited
	// field containing the concatenated fixed64 values.
	packed := make([]byte, 0, len(bins)*8)
	for _, c := range bins {
		packed = protowire.AppendFixed64(packed, math.Float64bits(c))
	}

	var b []byte
	b = appendMessage(b, fieldStoreContiguousBinCounts, packed)
	// int32 fields use the plain (non-zigzag) varint encoding; negative
	// values sign-extend to the full 64-bit varint form.
	b = appendVarint(b, fieldStoreContiguousBinIndexOffset, uint64(int64(int32(offset))))
	return b
}

// encodeSketchProto serializes a Sketch into the Protobuf bytes carried
// as StatsPoint.PathwayLatency / .EdgeLatency.
func encodeSketchProto(s *ddsketch.Sketch) []byte {
	var b []byte
	b = appendMessage(b, fieldSketchMapping, encodeMapping(s.Mapping()))
	b = appendMessage(b, fieldSketchPositiveValues, encodeStore(s.PositiveStore()))
	b = appendMessage(b, fieldSketchNegativeValues, encodeStore(s.NegativeStore()))
	b = appendDouble(b, fieldSketchZeroCount, s.ZeroCount())
	return b
}
