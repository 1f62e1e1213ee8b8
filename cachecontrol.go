package httpcache

import (
	"strconv"
	"strings"
	"time"
)

// Cache-Control directive names recognised by the engine (spec §6).
const (
	directiveNoCache              = "no-cache"
	directiveNoStore              = "no-store"
	directiveMaxAge               = "max-age"
	directiveSMaxAge              = "s-maxage"
	directiveMaxStale             = "max-stale"
	directiveMinFresh             = "min-fresh"
	directiveMustRevalidate       = "must-revalidate"
	directiveProxyRevalidate      = "proxy-revalidate"
	directivePublic               = "public"
	directivePrivate              = "private"
	directiveMustUnderstand       = "must-understand"
	directiveOnlyIfCached         = "only-if-cached"
	directiveStaleWhileRevalidate = "stale-while-revalidate"
	directiveStaleIfError         = "stale-if-error"
)

// cacheControl is a parsed Cache-Control header: directive name to its
// (possibly empty) value.
type cacheControl map[string]string

// parseCacheControl parses a Cache-Control header value into directive/value
// pairs. Duplicate directives keep their first occurrence; the duplicate is
// logged and discarded, matching RFC 9111 §4.2.1 guidance.
func parseCacheControl(raw string) cacheControl {
	cc := cacheControl{}
	if raw == "" {
		return cc
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(strings.ToLower(name))
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if _, seen := cc[name]; seen {
			GetLogger().Warn("duplicate Cache-Control directive, keeping first value",
				"directive", name, "ignored_value", value)
			continue
		}
		cc[name] = value
	}
	return cc
}

// pragmaNoCache is the HTTP/1.0 legacy directive RFC 9111 §5.4 requires
// caches to treat as "Cache-Control: no-cache" when a request carries no
// Cache-Control header at all (SPEC_FULL.md §3's "Pragma: no-cache
// fallback"), grounded on sandrolain-httpcache's checkCacheControl.
const pragmaNoCache = "no-cache"

// effectiveRequestCacheControl parses a request's Cache-Control header, or,
// if it is absent, falls back to treating a "Pragma: no-cache" header as a
// bare "Cache-Control: no-cache".
func effectiveRequestCacheControl(h Headers) cacheControl {
	if raw := h.CacheControl(); raw != "" {
		return parseCacheControl(raw)
	}
	if strings.EqualFold(strings.TrimSpace(h.Pragma()), pragmaNoCache) {
		return cacheControl{directiveNoCache: ""}
	}
	return cacheControl{}
}

func (cc cacheControl) has(name string) bool {
	_, ok := cc[name]
	return ok
}

// seconds parses a directive's value as a non-negative integer number of
// seconds. ok is false if the directive is absent or its value is malformed.
func (cc cacheControl) seconds(name string) (d time.Duration, ok bool) {
	v, present := cc[name]
	if !present {
		return 0, false
	}
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		GetLogger().Warn("invalid Cache-Control duration directive, ignoring",
			"directive", name, "value", v)
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// maxStale reports presence of the max-stale directive, its optional delta,
// and whether a delta was given at all (a bare "max-stale" accepts any
// staleness, per spec §4.3).
func (cc cacheControl) maxStale() (delta time.Duration, hasDelta bool, present bool) {
	v, ok := cc[directiveMaxStale]
	if !ok {
		return 0, false, false
	}
	if v == "" {
		return 0, false, true
	}
	d, ok := cc.seconds(directiveMaxStale)
	return d, ok, true
}
