package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics instruments the listing service. A per-server registry keeps
// multiple instances (and tests) from fighting over the default one.
type metrics struct {
	registry      *prometheus.Registry
	refreshTotal  *prometheus.CounterVec
	viewTotal     *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	invalidations prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subfolder_loader_refresh_requests_total",
			Help: "Refresh requests by outcome.",
		}, []string{"outcome"}),
		viewTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subfolder_loader_view_requests_total",
			Help: "View requests by outcome.",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subfolder_loader_cache_hits_total",
			Help: "Listing cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subfolder_loader_cache_misses_total",
			Help: "Listing cache misses.",
		}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subfolder_loader_cache_invalidations_total",
			Help: "Cache invalidations requested by forced refreshes.",
		}),
	}

	m.registry.MustRegister(m.refreshTotal, m.viewTotal, m.cacheHits, m.cacheMisses, m.invalidations)
	return m
}
