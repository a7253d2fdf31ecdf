package pathway

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// defaultHashCacheSize bounds memory the same way tgres's dsLRU bounds its
// data-source cache: a capped evict-on-overflow cache in front of a pure
// (if not entirely cheap) computation.
const defaultHashCacheSize = 4096

// HashCache memoizes NodeHash so that repeatedly checkpointing the same
// (service, env, primaryTag, tag set) does not re-sort and re-hash on
// every call.
type HashCache struct {
	cache *lru.Cache
}

// NewHashCache returns a cache holding up to size entries (defaultHashCacheSize if size <= 0).
func NewHashCache(size int) *HashCache {
	if size <= 0 {
		size = defaultHashCacheSize
	}
	c, _ := lru.New(size)
	return &HashCache{cache: c}
}

// NodeHash returns NodeHash(service, env, primaryTag, tags), consulting
// and populating the cache.
func (h *HashCache) NodeHash(service, env, primaryTag string, tags []Tag) uint64 {
	key := cacheKey(service, env, primaryTag, tags)
	if v, ok := h.cache.Get(key); ok {
		return v.(uint64)
	}
	hash := NodeHash(service, env, primaryTag, tags)
	h.cache.Add(key, hash)
	return hash
}

func cacheKey(service, env, primaryTag string, tags []Tag) string {
	rendered := SortedRendered(FilterHashableTags(tags))
	var b strings.Builder
	b.WriteString(strconv.Quote(service))
	b.WriteByte('\x00')
	b.WriteString(strconv.Quote(env))
	b.WriteByte('\x00')
	b.WriteString(strconv.Quote(primaryTag))
	for _, r := range rendered {
		b.WriteByte('\x00')
		b.WriteString(r)
	}
	return b.String()
}
