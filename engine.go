package httpcache

import "fmt"

// Resolver is the transport-level collaborator the engine delegates actual
// network I/O to (spec §6, "Resolver contract"). It must not interpret
// cache headers — it returns whatever the origin sent, or an error.
type Resolver interface {
	Resolve(req Request) (Response, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(req Request) (Response, error)

func (f ResolverFunc) Resolve(req Request) (Response, error) { return f(req) }

// Engine is the top-level cache entry point: it orchestrates the
// request/response flow of spec §4.1.
type Engine struct {
	resolver Resolver
	storage  Storage
	stats    *Statistics
	locks    *keyedMutex
	clock    clock
	backend  string
}

// NewEngine constructs an Engine. Storage is required; Resolver may be set
// later via WithResolver, but Resolve fails with ErrMisconfigured until one
// is present.
func NewEngine(storage Storage, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		storage: storage,
		stats:   NewStatistics(),
		locks:   newKeyedMutex(),
		clock:   systemClock,
		backend: "storage",
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("httpcache: invalid engine option: %w", err)
		}
	}
	return e, nil
}

// Statistics returns the engine's hit/miss counters.
func (e *Engine) Statistics() *Statistics { return e.stats }

// Resolve implements spec §4.1: classify the request, then either bypass
// storage entirely or consult it under the request URI's lock.
func (e *Engine) Resolve(req Request, force bool) (Response, error) {
	if e.resolver == nil {
		return Response{}, ErrMisconfigured
	}

	if !req.IsCacheableMethod() || forbidsCaching(req) {
		return e.bypassStorage(req)
	}

	return e.cacheableResolve(req, force)
}

// bypassStorage implements spec §4.1 step 1: the engine does not consult
// storage. Unsafe methods invalidate every cached variant of the URI first,
// then, once the response comes back, same-origin URIs it names via
// Location/Content-Location (SPEC_FULL.md §3).
func (e *Engine) bypassStorage(req Request) (Response, error) {
	if req.IsUnsafe() {
		if err := e.storage.Invalidate(NormalizeURI(req.URI)); err != nil {
			GetLogger().Warn("failed to invalidate on unsafe method", "uri", req.URI, "error", err)
		}
	}
	resp, err := e.resolver.Resolve(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if req.IsUnsafe() {
		e.invalidateLocations(req, resp)
	}
	return resp, nil
}

// cacheableResolve implements spec §4.1 steps 2-5: acquire the per-URI
// lock, consult storage, and serve fresh/stale/revalidated/unconditional as
// appropriate.
func (e *Engine) cacheableResolve(req Request, force bool) (Response, error) {
	l := e.locks.Acquire(NormalizeURI(req.URI))
	defer l.Release()

	if force || isUnconditionalByDirective(req) {
		// Forced and Cache-Control: no-cache requests never consult storage,
		// but they did acquire the per-URI lock above, so spec §8 invariant 5
		// ("hits+misses == requests that acquired the lock") counts this path
		// as a miss.
		e.stats.recordMiss(e.backend)
		return e.resolveUnconditional(req, nil)
	}

	item, ok := e.storage.Get(req)
	if !ok {
		e.stats.recordMiss(e.backend)
		if isOnlyIfCached(req) {
			return onlyIfCachedMiss(), nil
		}
		return e.resolveUnconditional(req, nil)
	}
	e.stats.recordHit(e.backend)

	if p := item.Response.Payload; p != nil && p.HasPayload() && !p.IsAvailable() {
		// The cached body can no longer be read: treat the item as stale and
		// refetch it without conditionals (see buildConditionalRequest).
		return e.revalidate(req, item)
	}

	now := e.clock.Now()
	if isFresh(item, now) {
		return rewriteForCaller(item, now), nil
	}

	if canServeStale(item, req.Headers, now) {
		if staleWhileRevalidateWindow(item, now) {
			e.stats.recordStale("stale-while-revalidate")
			e.refreshInBackground(req, item)
		} else {
			e.stats.recordStale("max-stale")
		}
		return addStaleWarning(rewriteForCaller(item, now)), nil
	}

	if isOnlyIfCached(req) {
		return onlyIfCachedMiss(), nil
	}

	return e.revalidate(req, item)
}

// refreshInBackground implements RFC 5861's stale-while-revalidate contract:
// the stale entry was already returned to the caller, so this kicks off an
// asynchronous revalidation that reuses the URI's keyed mutex — a
// synchronous request for the same URI blocks behind it, rather than racing
// it — grounded on bartventer-httpcache's handleStaleWhileRevalidate /
// performBackgroundRevalidation.
func (e *Engine) refreshInBackground(req Request, item CacheItem) {
	go func() {
		l := e.locks.Acquire(NormalizeURI(req.URI))
		defer l.Release()

		// Another request may have refreshed this entry while we waited for
		// the lock; skip the redundant round-trip if so.
		current, ok := e.storage.Get(req)
		if !ok {
			current = item
		} else if isFresh(current, e.clock.Now()) {
			return
		}

		if _, err := e.revalidate(req, current); err != nil {
			GetLogger().Warn("background stale-while-revalidate refresh failed", "uri", req.URI, "error", err)
		}
	}()
}

// revalidate implements spec §4.1 step 3-4: build and send a conditional
// request, then handle the resolver's outcome.
func (e *Engine) revalidate(req Request, item CacheItem) (Response, error) {
	condReq := buildConditionalRequest(req, item)

	resolved, err := e.resolver.Resolve(condReq)
	if err != nil {
		return e.onUpstreamFailure(req, item, err)
	}

	if resolved.StatusCode == 304 {
		updated := mergeNotModified(item.Response, resolved)
		stored, err := e.storage.Update(req, updated)
		if err != nil {
			GetLogger().Warn("failed to update storage after revalidation", "uri", req.URI, "error", err)
			return updated, nil
		}
		return stored, nil
	}

	return e.onFreshResponse(req, resolved, &item)
}

// resolveUnconditional implements spec §4.1 step 4's "fresh 2xx" / "other
// statuses" branches for the unconditional-fetch path (cache miss, force,
// or request-directed no-cache). cachedItem is nil unless a prior item
// exists (kept for symmetry with revalidate's failure handling).
func (e *Engine) resolveUnconditional(req Request, cachedItem *CacheItem) (Response, error) {
	resolved, err := e.resolver.Resolve(req)
	if err != nil {
		if cachedItem != nil {
			return e.onUpstreamFailure(req, *cachedItem, err)
		}
		return Response{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if resolved.StatusCode == 304 && cachedItem != nil {
		updated := mergeNotModified(cachedItem.Response, resolved)
		stored, err := e.storage.Update(req, updated)
		if err != nil {
			GetLogger().Warn("failed to update storage after revalidation", "uri", req.URI, "error", err)
			return updated, nil
		}
		return stored, nil
	}

	return e.onFreshResponse(req, resolved, cachedItem)
}

// onFreshResponse implements spec §4.1 step 4's "Fresh 2xx" / "Other
// statuses" handling, shared by the unconditional and revalidation paths.
func (e *Engine) onFreshResponse(req Request, resolved Response, cachedItem *CacheItem) (Response, error) {
	if req.Method == MethodHead && cachedItem != nil {
		merged := mergeNotModified(cachedItem.Response, resolved)
		stored, err := e.storage.Update(req, merged)
		if err != nil {
			GetLogger().Warn("failed to update storage for HEAD response", "uri", req.URI, "error", err)
			return merged, nil
		}
		return stored, nil
	}

	if !IsResponseCacheable(resolved) {
		return resolved, nil
	}

	stored, err := e.storage.Insert(req, resolved)
	if err != nil {
		GetLogger().Warn("failed to insert response into storage", "uri", req.URI, "error", err)
		return resolved, nil
	}
	return stored, nil
}

// onUpstreamFailure implements spec §4.1 step 4's "Network failure"
// handling for a known cached item: serve the cached response annotated
// with a stale/revalidation-failed Warning, honoring a stale-if-error
// budget when one is set (SPEC_FULL.md §3).
func (e *Engine) onUpstreamFailure(req Request, item CacheItem, cause error) (Response, error) {
	now := e.clock.Now()
	if within, has := staleIfErrorWindow(item, req.Headers, now); has && !within {
		return Response{}, fmt.Errorf("%w: %w", ErrUpstream, cause)
	}

	e.stats.recordStale("upstream-error")
	return addRevalidationFailedWarning(rewriteForCaller(item, now)), nil
}

// onlyIfCachedMiss builds the synthetic response returned when the
// only-if-cached request directive finds nothing servable (SPEC_FULL.md
// §3): RFC 9111 specifies 504 Gateway Timeout for this case.
func onlyIfCachedMiss() Response {
	return Response{StatusCode: 504, Headers: Headers{}}
}
