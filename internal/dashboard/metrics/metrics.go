package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks how often dashboard stats are served from cache.
type Metrics struct {
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg, letting tests use an isolated registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_dashboard_stats_cache_hits_total",
			Help: "Dashboard stats served from cache, by scope",
		}, []string{"scope"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_dashboard_stats_cache_misses_total",
			Help: "Dashboard stats recomputed from the repository, by scope",
		}, []string{"scope"}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_dashboard_stats_cache_errors_total",
			Help: "Stats cache operations that failed, by operation",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementHit(scope string) {
	m.CacheHits.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementMiss(scope string) {
	m.CacheMisses.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementCacheError(operation string) {
	m.CacheErrors.WithLabelValues(operation).Inc()
}
