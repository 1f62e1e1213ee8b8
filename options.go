package httpcache

import (
	"fmt"

	"github.com/cachestash/httpcache/metrics"
)

// EngineOption configures an Engine at construction time (grounded on
// sandrolain-httpcache/options.go's functional-options convention).
type EngineOption func(*Engine) error

// WithResolver sets the collaborator the engine delegates network fetches
// to. Required before Resolve can succeed.
func WithResolver(r Resolver) EngineOption {
	return func(e *Engine) error {
		if r == nil {
			return fmt.Errorf("httpcache: nil resolver")
		}
		e.resolver = r
		return nil
	}
}

// WithResolverFunc is a convenience wrapper around WithResolver for a plain
// function collaborator.
func WithResolverFunc(f func(req Request) (Response, error)) EngineOption {
	return WithResolver(ResolverFunc(f))
}

// WithStatistics replaces the engine's Statistics, e.g. to share one set of
// counters across multiple engines or to preconfigure a Collector.
func WithStatistics(stats *Statistics) EngineOption {
	return func(e *Engine) error {
		if stats == nil {
			return fmt.Errorf("httpcache: nil statistics")
		}
		e.stats = stats
		return nil
	}
}

// WithCollector attaches a metrics.Collector to the engine's Statistics.
func WithCollector(c metrics.Collector) EngineOption {
	return func(e *Engine) error {
		if c == nil {
			return fmt.Errorf("httpcache: nil collector")
		}
		e.stats.Collector = c
		return nil
	}
}

// WithBackendName labels the Storage backend in hit/miss metrics
// (e.g. "memstore", "diskstore"). Defaults to "storage".
func WithBackendName(name string) EngineOption {
	return func(e *Engine) error {
		if name == "" {
			return fmt.Errorf("httpcache: empty backend name")
		}
		e.backend = name
		return nil
	}
}

// withClock overrides the engine's time source. Unexported: intended for
// this package's own tests only.
func withClock(c clock) EngineOption {
	return func(e *Engine) error {
		e.clock = c
		return nil
	}
}
