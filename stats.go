package httpcache

import (
	"sync/atomic"

	"github.com/cachestash/httpcache/metrics"
)

// Statistics holds the two monotonic counters required by spec §3/§8: hits
// (storage returned a usable item) and misses (storage returned nothing).
// Increments are atomic but not otherwise synchronised with engine state —
// spec §5 allows eventual consistency here.
type Statistics struct {
	hits   atomic.Int64
	misses atomic.Int64

	// Collector receives richer, optional instrumentation alongside the
	// mandatory counters (SPEC_FULL.md §2.1). Defaults to a no-op.
	Collector metrics.Collector
}

// NewStatistics returns a Statistics with a no-op Collector.
func NewStatistics() *Statistics {
	return &Statistics{Collector: metrics.NoOpCollector{}}
}

func (s *Statistics) recordHit(backend string) {
	s.hits.Add(1)
	s.collector().RecordCacheOperation("get", backend, "hit", 0)
}

func (s *Statistics) recordMiss(backend string) {
	s.misses.Add(1)
	s.collector().RecordCacheOperation("get", backend, "miss", 0)
}

func (s *Statistics) recordStale(reason string) {
	s.collector().RecordStaleResponse(reason)
}

func (s *Statistics) collector() metrics.Collector {
	if s.Collector == nil {
		return metrics.NoOpCollector{}
	}
	return s.Collector
}

// Hits returns the number of resolves served from storage.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the number of resolves that found nothing in storage.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Reset zeroes both counters. Intended for tests.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
}
