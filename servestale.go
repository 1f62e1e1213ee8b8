package httpcache

import "time"

// canServeStale implements the serve-stale policy of spec §4.3: a stale
// cached response may still be returned without revalidation when
// Cache-Control on the request or the cached response allows it via
// max-stale (respecting its optional delta) and no must-revalidate
// directive applies, OR when the stale-while-revalidate grace window (RFC
// 5861, §3 of SPEC_FULL.md) still covers now.
func canServeStale(item CacheItem, reqHeaders Headers, now time.Time) bool {
	respCC := parseCacheControl(item.Response.Headers.CacheControl())
	reqCC := parseCacheControl(reqHeaders.CacheControl())

	if respCC.has(directiveMustRevalidate) || respCC.has(directiveProxyRevalidate) {
		return staleWhileRevalidateWindow(item, now)
	}

	if allowed := maxStaleAllows(reqCC, item, now); allowed {
		return true
	}
	if allowed := maxStaleAllows(respCC, item, now); allowed {
		return true
	}

	return staleWhileRevalidateWindow(item, now)
}

// maxStaleAllows reports whether cc's max-stale directive (if any) tolerates
// the item's current excess staleness at instant now.
func maxStaleAllows(cc cacheControl, item CacheItem, now time.Time) bool {
	delta, hasDelta, present := cc.maxStale()
	if !present {
		return false
	}
	if !hasDelta {
		return true
	}
	excess := currentAge(item, now) - freshnessLifetime(item.Response.Headers)
	return excess <= delta
}
