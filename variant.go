package httpcache

import (
	"sort"
	"strings"
)

// StorageKey identifies a stored CacheItem by request URI plus a variant
// fingerprint derived from the cached response's Vary header (spec §3
// "Storage key").
type StorageKey struct {
	URI         string
	Fingerprint string
}

// varyStar is the literal wildcard Vary value that makes a response
// unconditionally uncacheable (spec §9 open question, resolved explicitly
// here rather than left as an unmatchable fingerprint).
const varyStar = "*"

// Fingerprint derives the variant fingerprint for a request given the Vary
// header names listed on a (candidate or already-cached) response. For each
// listed header name, the fingerprint concatenates "name=value" using the
// request's header values; a literal "*" makes the response uncacheable and
// is reported via the second return value.
func Fingerprint(req Request, vary []string) (fingerprint string, cacheable bool) {
	if len(vary) == 0 {
		return "", true
	}
	parts := make([]string, 0, len(vary))
	for _, name := range vary {
		name = strings.TrimSpace(name)
		if name == varyStar {
			return "", false
		}
		if name == "" {
			continue
		}
		parts = append(parts, canonical(name)+"="+req.Headers.Get(name))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&"), true
}

// varyForbidsCaching reports whether a Vary header list contains the
// literal wildcard, which spec §9 resolves explicitly to "not cacheable".
func varyForbidsCaching(vary []string) bool {
	for _, name := range vary {
		if strings.TrimSpace(name) == varyStar {
			return true
		}
	}
	return false
}

// StorageKeyFor builds the StorageKey for req given a candidate response's
// Vary header. ok is false if the response is not cacheable due to
// Vary: *.
func StorageKeyFor(req Request, vary []string) (key StorageKey, ok bool) {
	fp, cacheable := Fingerprint(req, vary)
	if !cacheable {
		return StorageKey{}, false
	}
	return StorageKey{URI: NormalizeURI(req.URI), Fingerprint: fp}, true
}
