package httpcache

import "time"

// CacheItem bundles a cached Response with the monotonic instant it entered
// the cache. The response's payload, if any, was fully captured at
// insertion time and remains addressable until the item is evicted; the
// cached timestamp is assigned exactly once, on insertion, and never
// mutated thereafter.
type CacheItem struct {
	Response     Response
	ResponseTime time.Time
}

// NewCacheItem wraps resp with the given responseTime.
func NewCacheItem(resp Response, responseTime time.Time) CacheItem {
	return CacheItem{Response: resp, ResponseTime: responseTime}
}

// IsStale reports whether the item is stale at instant now, per the
// freshness calculation in freshness.go.
func (ci CacheItem) IsStale(now time.Time) bool {
	return !isFresh(ci, now)
}
