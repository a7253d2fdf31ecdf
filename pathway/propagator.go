package pathway

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// HeaderCarrier is the minimal shape a propagator needs from an
// in-flight message: a case-insensitive, mutable string/bytes-keyed
// header bag. Concrete message-bus bindings (see the integrations
// packages) adapt their native header types to this interface.
type HeaderCarrier interface {
	// Get returns the raw bytes stored under key, matched
	// case-insensitively, or nil if absent.
	Get(key string) ([]byte, bool)
	// Set replaces any existing value(s) under key (case-insensitively)
	// with the single given value.
	Set(key string, value []byte)
	// Del removes any existing value(s) stored under key, matched
	// case-insensitively.
	Del(key string)
}

const (
	headerBinary = "dd-pathway-ctx"
	headerBase64 = "dd-pathway-ctx-base64"

	binaryLen = 20
)

// Encode renders p as the 20-byte binary wire form: 8 bytes little-endian
// hash, followed by two 6-byte varint-zigzag encoded millisecond
// timestamps.
func Encode(p Pathway) []byte {
	buf := make([]byte, 0, binaryLen)
	var hashBuf [8]byte
	binary.LittleEndian.PutUint64(hashBuf[:], p.Hash)
	buf = append(buf, hashBuf[:]...)
	buf = append(buf, encodeTime(p.PathwayStartNs)...)
	buf = append(buf, encodeTime(p.EdgeStartNs)...)
	return buf
}

// EncodeString renders p as base64(Encode(p)).
func EncodeString(p Pathway) string {
	return base64.StdEncoding.EncodeToString(Encode(p))
}

// Decode parses the 20-byte binary wire form produced by Encode. Any
// malformed input yields (Empty, false) rather than an error: a
// corrupted or missing pathway header must never fail the caller's
// produce/consume path.
func Decode(b []byte) (Pathway, bool) {
	if len(b) != binaryLen {
		return Empty, false
	}
	hash := binary.LittleEndian.Uint64(b[0:8])
	pathwayStartMs, ok := decodeTime(b[8:14])
	if !ok {
		return Empty, false
	}
	edgeStartMs, ok := decodeTime(b[14:20])
	if !ok {
		return Empty, false
	}
	return Pathway{
		Hash:           hash,
		PathwayStartNs: uint64(pathwayStartMs) * 1_000_000,
		EdgeStartNs:    uint64(edgeStartMs) * 1_000_000,
	}, true
}

// DecodeString parses the base64 wire form produced by EncodeString.
func DecodeString(s string) (Pathway, bool) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Empty, false
	}
	return Decode(b)
}

// encodeTime zigzag-varint encodes floor(ns/1e6) into a fixed 6-byte
// little-endian slot, zero-padded on the high end. Six varint bytes carry
// 42 zigzag bits, i.e. roughly +/-2^41 ms, enough for Unix-epoch
// millisecond timestamps.
func encodeTime(ns uint64) []byte {
	ms := int64(ns / 1_000_000)
	zz := zigzagEncode(ms)
	out := make([]byte, 6)
	for i := 0; i < 6 && zz != 0; i++ {
		out[i] = byte(zz & 0x7f)
		zz >>= 7
		if zz != 0 {
			out[i] |= 0x80
		}
	}
	return out
}

func decodeTime(b []byte) (int64, bool) {
	var zz uint64
	shift := uint(0)
	for i := 0; i < len(b); i++ {
		zz |= uint64(b[i]&0x7f) << shift
		shift += 7
		if b[i]&0x80 == 0 {
			return zigzagDecode(zz), true
		}
	}
	// The varint never terminated inside its slot.
	return 0, false
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// InjectHeaders removes any existing pathway header (under either name,
// case-insensitively) from c and writes the binary form under
// headerBinary.
func InjectHeaders(c HeaderCarrier, p Pathway) {
	c.Del(headerBinary)
	c.Del(headerBase64)
	c.Set(headerBinary, Encode(p))
}

// ExtractHeaders reads a pathway out of c. Binary wins if both forms are
// present. Absence or malformed data yields (Empty, false): callers
// proceed with a fresh pathway rather than failing.
func ExtractHeaders(c HeaderCarrier) (Pathway, bool) {
	if raw, ok := c.Get(headerBinary); ok {
		return Decode(raw)
	}
	if raw, ok := c.Get(headerBase64); ok {
		return DecodeString(strings.TrimSpace(string(raw)))
	}
	return Empty, false
}
