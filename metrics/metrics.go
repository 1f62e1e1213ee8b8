// Package metrics defines a generic interface for collecting HTTP cache
// instrumentation, so the core engine can emit richer signals than the bare
// hit/miss counters of spec §3 without taking a hard dependency on any one
// metrics backend.
package metrics

import "time"

// Collector receives cache instrumentation events. Implementations must be
// safe for concurrent use.
type Collector interface {
	// RecordCacheOperation records a storage operation outcome: operation is
	// "get", "insert", "update", or "invalidate"; backend names the Storage
	// implementation ("memstore", "diskstore", ...); result is "hit",
	// "miss", "success", or "error".
	RecordCacheOperation(operation, backend, result string, duration time.Duration)

	// RecordCacheEntries records the current number of entries in a store.
	RecordCacheEntries(backend string, count int64)

	// RecordStaleResponse records that a stale cached response was served
	// instead of a fresh resolve, tagged with the reason ("upstream-error",
	// "max-stale", "stale-while-revalidate").
	RecordStaleResponse(reason string)
}

// NoOpCollector discards every event. It is the default Collector, giving
// zero overhead to callers who don't want metrics.
type NoOpCollector struct{}

func (NoOpCollector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
}
func (NoOpCollector) RecordCacheEntries(backend string, count int64) {}
func (NoOpCollector) RecordStaleResponse(reason string)              {}

var _ Collector = NoOpCollector{}
