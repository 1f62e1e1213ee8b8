package httpcache

import (
	"strconv"
	"time"
)

// dateTolerance bounds how stale a cached Date header may be before the
// engine substitutes the current time when rewriting a response for the
// caller (spec §4.7).
const dateTolerance = 1 * time.Second

// nonUpdatableOn304 lists the headers a 304 response is not allowed to
// update on the cached response (spec §4.1.4): end-to-end headers that
// describe the cached body, not the revalidation outcome.
var nonUpdatableOn304 = []string{"Content-Length", "Content-MD5", "ETag", "Last-Modified"}

// buildConditionalRequest constructs the revalidation request of spec
// §4.1.3: starting from req, set If-None-Match / If-Modified-Since from the
// cached item's validators. If the cached payload is no longer available,
// conditionals are cleared instead so the origin is forced to send a body.
func buildConditionalRequest(req Request, item CacheItem) Request {
	if item.Response.Payload != nil && item.Response.Payload.HasPayload() && !item.Response.Payload.IsAvailable() {
		h := req.Headers.Del("If-None-Match").Del("If-Modified-Since")
		return req.WithHeaders(h)
	}

	h := req.Headers
	if etag := item.Response.Headers.ETag(); etag != "" {
		h = h.Set("If-None-Match", etag)
	}
	if lm := item.Response.Headers.LastModified(); lm != "" {
		h = h.Set("If-Modified-Since", lm)
	}
	return req.WithHeaders(h)
}

// mergeNotModified implements spec §4.1.4's 304 handling: merge the
// resolved response's headers onto the cached response, excluding the
// non-updatable end-to-end headers, and preferring the new Date.
func mergeNotModified(cached, resolved Response) Response {
	h := cached.Headers
	for _, name := range resolved.Headers.Names() {
		skip := false
		for _, forbidden := range nonUpdatableOn304 {
			if canonical(name) == canonical(forbidden) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		h = h.Del(name)
		for _, v := range resolved.Headers.Values(name) {
			h = h.Add(name, v)
		}
	}
	// Drop the cached Date in favour of the new one, if present.
	if resolved.Headers.Has("Date") {
		h = h.Set("Date", resolved.Headers.Get("Date"))
	}
	return cached.WithHeaders(h)
}

// rewriteForCaller implements spec §4.7: substitute a freshly computed Age
// header, and a new Date if the cached Date is older than dateTolerance.
func rewriteForCaller(item CacheItem, now time.Time) Response {
	resp := item.Response
	age := currentAge(item, now)
	h := resp.Headers.Set("Age", formatAgeSeconds(age))

	if date, ok := resp.Headers.Date(); !ok || now.Sub(date) > dateTolerance {
		h = h.Set("Date", FormatHTTPDate(now))
	}
	return resp.WithHeaders(h)
}

func formatAgeSeconds(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return strconv.FormatInt(secs, 10)
}
