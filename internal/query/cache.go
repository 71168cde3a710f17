package query

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/patternforge/graphrag-go/internal/apptype"
	"github.com/patternforge/graphrag-go/internal/metrics"
)

// DefaultCacheSize bounds the number of distinct cached queries.
const DefaultCacheSize = 512

// cacheEntry pins the results to the store version they were computed at.
// Any later mutation makes the entry stale without explicit invalidation.
type cacheEntry struct {
	version uint64
	matches []apptype.QueryMatch
}

// resultCache is a version-stamped LRU over normalized query keys.
type resultCache struct {
	lru *lru.Cache[string, cacheEntry]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: cache}, nil
}

// get returns the cached matches if present and computed at the given
// store version.
func (c *resultCache) get(key string, version uint64) ([]apptype.QueryMatch, bool) {
	entry, ok := c.lru.Get(key)
	if !ok || entry.version != version {
		metrics.Default().IncCacheMiss("query")
		return nil, false
	}
	metrics.Default().IncCacheHit("query")
	return entry.matches, true
}

func (c *resultCache) put(key string, version uint64, matches []apptype.QueryMatch) {
	c.lru.Add(key, cacheEntry{version: version, matches: matches})
}

func (c *resultCache) purge() {
	c.lru.Purge()
}
