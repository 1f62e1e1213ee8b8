package httpcache

import "net/url"

// invalidateLocations implements RFC 9111 §4.4's same-origin invalidation
// supplement to spec.md §4.1 step 1: once an unsafe method's response comes
// back non-error, any same-origin URI it names via Location or
// Content-Location is invalidated too, grounded on
// sandrolain-httpcache's invalidateCache/invalidateHeaderURI/isSameOrigin.
func (e *Engine) invalidateLocations(req Request, resp Response) {
	if resp.StatusCode >= 400 {
		return
	}
	if v := resp.Headers.Location(); v != "" {
		e.invalidateHeaderURI(req.URI, v, "Location")
	}
	if v := resp.Headers.ContentLocation(); v != "" {
		e.invalidateHeaderURI(req.URI, v, "Content-Location")
	}
}

// invalidateHeaderURI resolves headerValue against base (it may be relative
// or absolute) and invalidates it, unless doing so would cross origins.
func (e *Engine) invalidateHeaderURI(base, headerValue, headerName string) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return
	}
	target, err := baseURL.Parse(headerValue)
	if err != nil {
		GetLogger().Debug("failed to parse invalidation target URI", "header", headerName, "value", headerValue, "error", err)
		return
	}
	if !isSameOrigin(baseURL, target) {
		GetLogger().Debug("skipping cross-origin invalidation", "header", headerName, "target", target.String())
		return
	}
	if err := e.storage.Invalidate(NormalizeURI(target.String())); err != nil {
		GetLogger().Warn("failed to invalidate header-named URI", "header", headerName, "uri", target.String(), "error", err)
	}
}

// isSameOrigin reports whether a and b share scheme and host (including
// port), the origin definition RFC 9111 §4.4 restricts invalidation to.
func isSameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}
