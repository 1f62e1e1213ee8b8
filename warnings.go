package httpcache

const (
	headerWarning = "Warning"

	// warningResponseIsStale is added when a stale item is served without
	// revalidation (spec §4.3, §7).
	warningResponseIsStale = `110 - "Response is Stale"`

	// warningRevalidationFailed is added when revalidation could not reach
	// the origin but a cached response is returned anyway (spec §4.1.4,
	// §7).
	warningRevalidationFailed = `111 - "Revalidation Failed"`
)

// addStaleWarning returns resp with a Warning: 110 header set.
func addStaleWarning(resp Response) Response {
	return resp.WithHeaders(resp.Headers.Set(headerWarning, warningResponseIsStale))
}

// addRevalidationFailedWarning returns resp with a Warning: 111 header set.
func addRevalidationFailedWarning(resp Response) Response {
	return resp.WithHeaders(resp.Headers.Set(headerWarning, warningRevalidationFailed))
}
