// Package metrics exposes cardforge's Prometheus instrumentation: cache
// hit/miss counters and fetch outcome/latency metrics, registered against
// a package-owned registry rather than the global default so the module
// stays embeddable and test-isolated.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles cardforge's metric collectors and the registry they're
// registered against.
type Registry struct {
	reg *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
}

// New builds a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardforge_fetch_total",
			Help: "Outbound fetches to the upstream card catalog, by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardforge_fetch_duration_seconds",
			Help:    "Latency of outbound fetches to the upstream card catalog.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardforge_cache_hits_total",
			Help: "Cache hits, by cache name.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardforge_cache_misses_total",
			Help: "Cache misses, by cache name.",
		}, []string{"cache"}),
	}

	reg.MustRegister(r.fetchTotal, r.fetchDuration, r.cacheHits, r.cacheMisses)
	return r
}

// Registerer exposes the underlying prometheus.Registry for /metrics
// exposition and test assertions.
func (r *Registry) Registerer() *prometheus.Registry { return r.reg }

// ObserveFetch records the outcome and latency of one upstream fetch.
func (r *Registry) ObserveFetch(success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.fetchTotal.WithLabelValues(outcome).Inc()
	r.fetchDuration.Observe(elapsed.Seconds())
}

// CacheHit increments the hit counter for the named cache.
func (r *Registry) CacheHit(cacheName string) {
	r.cacheHits.WithLabelValues(cacheName).Inc()
}

// CacheMiss increments the miss counter for the named cache.
func (r *Registry) CacheMiss(cacheName string) {
	r.cacheMisses.WithLabelValues(cacheName).Inc()
}
