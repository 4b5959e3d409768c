package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts limiter decisions.
type Metrics struct {
	Rejected    *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_ratelimit_rejected_total",
			Help: "Mutating requests rejected by the write limiter, by method",
		}, []string{"method"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "rctrack_ratelimit_store_errors_total",
			Help: "Limiter checks that failed and let the request through",
		}),
	}
}

func (m *Metrics) IncrementRejected(method string) {
	m.Rejected.WithLabelValues(method).Inc()
}

func (m *Metrics) IncrementStoreError() {
	m.StoreErrors.Inc()
}
