package pathway

import "encoding/binary"

const (
	fnv1Offset64 uint64 = 14695981039346656037
	fnv1Prime64  uint64 = 1099511628211
)

// fnv1Hash64 computes the (non-standard, non-avalanching) FNV-1 64-bit
// hash of b: multiply-then-xor, as opposed to FNV-1a's xor-then-multiply.
func fnv1Hash64(b []byte) uint64 {
	h := fnv1Offset64
	for _, c := range b {
		h *= fnv1Prime64
		h ^= uint64(c)
	}
	return h
}

// NodeHash derives the stable hash of a single node in the pathway graph
// from its identity (service, env, primaryTag) and its hashable tags.
// Tags with keys outside the hashable whitelist are dropped; the surviving
// tags are sorted by key before being rendered, so tag order never affects
// the result.
func NodeHash(service, env, primaryTag string, tags []Tag) uint64 {
	rendered := SortedRendered(FilterHashableTags(tags))

	size := len(service) + len(env) + len(primaryTag)
	for _, r := range rendered {
		size += len(r)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, service...)
	buf = append(buf, env...)
	buf = append(buf, primaryTag...)
	for _, r := range rendered {
		buf = append(buf, r...)
	}
	return fnv1Hash64(buf)
}

// PathwayHash derives the hash of a checkpoint from the node hash just
// computed and the parent pathway's hash. It is not commutative:
// PathwayHash(a, b) almost always differs from PathwayHash(b, a).
func PathwayHash(nodeHash, parentHash uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], nodeHash)
	binary.LittleEndian.PutUint64(buf[8:16], parentHash)
	return fnv1Hash64(buf[:])
}
