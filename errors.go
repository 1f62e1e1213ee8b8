package httpcache

import "errors"

// Error kinds surfaced by the engine and storage implementations, per
// the error handling design: UpstreamError and MisconfiguredError are
// surfaced to the caller, CorruptStoreError and PayloadUnavailable are
// recovered locally (the latter by the engine, the former by persistent
// stores on load), and StorageFull never surfaces at all since eviction is
// silent.
var (
	// ErrMisconfigured is returned when Resolve is called on an Engine with
	// no Resolver configured.
	ErrMisconfigured = errors.New("httpcache: engine has no resolver configured")

	// ErrUpstream marks a resolver failure that has no cached fallback to
	// serve instead. The returned error wraps both ErrUpstream and the
	// resolver's error; use errors.Is or errors.As to inspect either one
	// (errors.Unwrap returns nil for an error that wraps two).
	ErrUpstream = errors.New("httpcache: resolver failed and no cached response is available")

	// ErrCorruptStore indicates a persistent store's metadata snapshot could
	// not be decoded. The store recovers by discarding the file and starting
	// empty; this error is only surfaced via diagnostics.
	ErrCorruptStore = errors.New("httpcache: persistent store snapshot is corrupt")

	// ErrPayloadUnavailable indicates a cached item's payload is no longer
	// readable (e.g. its backing file was removed out of band). The engine
	// recovers by treating the item as unconditionally stale.
	ErrPayloadUnavailable = errors.New("httpcache: cached payload is no longer available")
)
