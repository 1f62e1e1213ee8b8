// Package prometheus provides a Prometheus-backed metrics.Collector. It is
// an optional subpackage, imported only by callers who want /metrics
// exposition wired to the cache engine.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cachestash/httpcache/metrics"
)

// Config configures the Prometheus collector.
type Config struct {
	// Registry is the registerer to use. Defaults to
	// prometheus.DefaultRegisterer when nil.
	Registry prometheus.Registerer
	// Namespace prefixes every metric name. Defaults to "httpcache".
	Namespace string
}

// Collector implements metrics.Collector by recording to Prometheus
// CounterVec/GaugeVec instruments.
type Collector struct {
	operations *prometheus.CounterVec
	entries    *prometheus.GaugeVec
	stale      *prometheus.CounterVec
}

// New registers the collector's metrics with cfg.Registry (or the default
// registerer) and returns the collector.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "httpcache"
	}
	factory := promauto.With(cfg.Registry)
	if cfg.Registry == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	}

	return &Collector{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_operations_total",
			Help:      "Cache storage operations by operation, backend, and result.",
		}, []string{"operation", "backend", "result"}),
		entries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_entries",
			Help:      "Current number of entries held by a storage backend.",
		}, []string{"backend"}),
		stale: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "cache_stale_responses_total",
			Help:      "Stale cached responses served instead of a fresh resolve.",
		}, []string{"reason"}),
	}
}

func (c *Collector) RecordCacheOperation(operation, backend, result string, _ time.Duration) {
	c.operations.WithLabelValues(operation, backend, result).Inc()
}

func (c *Collector) RecordCacheEntries(backend string, count int64) {
	c.entries.WithLabelValues(backend).Set(float64(count))
}

func (c *Collector) RecordStaleResponse(reason string) {
	c.stale.WithLabelValues(reason).Inc()
}

var _ metrics.Collector = (*Collector)(nil)
