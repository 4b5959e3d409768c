package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level HTTP metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers the HTTP metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg, letting tests use an isolated registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rctrack_http_request_duration_seconds",
			Help:    "HTTP handler latency by route pattern",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveHTTPRequest implements request.LatencyObserver.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
