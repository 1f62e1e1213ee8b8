package httpcache

// understoodStatusCodes is the status-code whitelist of spec §4.6. 206 is
// intentionally excluded: partial-content/Range handling is a declared
// non-goal (spec §1).
var understoodStatusCodes = map[int]bool{
	200: true, // OK
	203: true, // Non-Authoritative Information
	204: true, // No Content
	300: true, // Multiple Choices
	301: true, // Moved Permanently
	404: true, // Not Found
	410: true, // Gone
}

// IsResponseCacheable implements spec §4.6's response predicate: status in
// the whitelist (or must-understand overriding no-store for an understood
// status), no no-store/private, and no Vary: *.
func IsResponseCacheable(resp Response) bool {
	cc := parseCacheControl(resp.Headers.CacheControl())

	if varyForbidsCaching(resp.Headers.Vary()) {
		return false
	}

	understood := understoodStatusCodes[resp.StatusCode]

	if cc.has(directiveMustUnderstand) {
		return understood
	}

	if !understood {
		return false
	}
	if cc.has(directiveNoStore) || cc.has(directivePrivate) {
		return false
	}
	return true
}

// IsRequestCacheable implements spec §4.6's request predicate: cacheable
// method and no no-store directive.
func IsRequestCacheable(req Request) bool {
	if !req.IsCacheableMethod() {
		return false
	}
	cc := parseCacheControl(req.Headers.CacheControl())
	return !cc.has(directiveNoStore)
}

// forbidsCaching reports whether classification should skip storage
// entirely for this request, per spec §4.1 step 1: no-store, or a bare
// no-cache. A "no-cache=field-list" form does not forbid caching here; such
// a request still resolves unconditionally via isUnconditionalByDirective.
// A request with no Cache-Control header at all falls back to
// Pragma: no-cache (SPEC_FULL.md §3).
func forbidsCaching(req Request) bool {
	cc := effectiveRequestCacheControl(req.Headers)
	if cc.has(directiveNoStore) {
		return true
	}
	if v, ok := cc[directiveNoCache]; ok && v == "" {
		return true
	}
	return false
}

// isUnconditionalByDirective reports whether the request demands an
// unconditional resolve per spec §4.1 step 2 (Cache-Control: no-cache on
// the request, or its Pragma: no-cache fallback).
func isUnconditionalByDirective(req Request) bool {
	cc := effectiveRequestCacheControl(req.Headers)
	_, ok := cc[directiveNoCache]
	return ok
}

// isOnlyIfCached reports the only-if-cached request directive (§3 of
// SPEC_FULL.md supplemented features).
func isOnlyIfCached(req Request) bool {
	cc := parseCacheControl(req.Headers.CacheControl())
	return cc.has(directiveOnlyIfCached)
}
