package httpcache

import "time"

// clock is the time seam used by freshness calculations, so tests can
// control "now" deterministically (grounded on sandrolain's "timer"
// interface in freshness.go).
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

var systemClock clock = realClock{}

// apparentAge computes max(0, responseTime - date) per spec §4.2.
func apparentAge(responseTime, date time.Time) time.Duration {
	d := responseTime.Sub(date)
	if d < 0 {
		return 0
	}
	return d
}

// currentAge computes the current age of a cached item at instant now, per
// spec §4.2: apparentAge + (now - responseTime) + the response's Age header.
func currentAge(item CacheItem, now time.Time) time.Duration {
	var age time.Duration
	if date, ok := item.Response.Headers.Date(); ok {
		age = apparentAge(item.ResponseTime, date)
	}
	age += now.Sub(item.ResponseTime)
	if hdrAge, ok := item.Response.Headers.Age(); ok {
		age += hdrAge
	}
	return age
}

// freshnessLifetime computes the freshness lifetime of a response per spec
// §4.2: s-maxage if present, else max-age, else (Expires - Date) if both
// present, else 0.
func freshnessLifetime(h Headers) time.Duration {
	cc := parseCacheControl(h.CacheControl())
	if d, ok := cc.seconds(directiveSMaxAge); ok {
		return d
	}
	if d, ok := cc.seconds(directiveMaxAge); ok {
		return d
	}
	date, hasDate := h.Date()
	expires, hasExpires := h.Expires()
	if hasDate && hasExpires {
		if d := expires.Sub(date); d > 0 {
			return d
		}
		return 0
	}
	return 0
}

// isFresh reports whether item is fresh at instant now, per spec §4.2.
// Cache-Control: no-cache on the response forces stale treatment regardless
// of lifetime.
func isFresh(item CacheItem, now time.Time) bool {
	cc := parseCacheControl(item.Response.Headers.CacheControl())
	if cc.has(directiveNoCache) {
		return false
	}
	return currentAge(item, now) < freshnessLifetime(item.Response.Headers)
}

// staleWhileRevalidateWindow reports whether now still falls within the
// item's stale-while-revalidate grace window (RFC 5861), supplementing
// spec §4.3's max-stale-only serve-stale policy.
func staleWhileRevalidateWindow(item CacheItem, now time.Time) bool {
	cc := parseCacheControl(item.Response.Headers.CacheControl())
	d, ok := cc.seconds(directiveStaleWhileRevalidate)
	if !ok {
		return false
	}
	return currentAge(item, now) < freshnessLifetime(item.Response.Headers)+d
}

// staleIfErrorWindow reports whether a stale-if-error budget (RFC 5861),
// set on either the request or the cached response, still covers now.
func staleIfErrorWindow(item CacheItem, reqHeaders Headers, now time.Time) (withinBudget bool, hasBudget bool) {
	respCC := parseCacheControl(item.Response.Headers.CacheControl())
	reqCC := parseCacheControl(reqHeaders.CacheControl())

	check := func(cc cacheControl) (bool, bool) {
		v, ok := cc[directiveStaleIfError]
		if !ok {
			return false, false
		}
		if v == "" {
			return true, true
		}
		d, ok := cc.seconds(directiveStaleIfError)
		if !ok {
			return false, true
		}
		return currentAge(item, now) < freshnessLifetime(item.Response.Headers)+d, true
	}

	if within, has := check(respCC); has {
		return within, true
	}
	if within, has := check(reqCC); has {
		return within, true
	}
	return false, false
}
