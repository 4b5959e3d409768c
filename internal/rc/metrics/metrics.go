package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the RC lifecycle.
// Tracks mutations, refused access, attachment cleanup failures and operation latency.
type Metrics struct {
	EntriesCreated            prometheus.Counter
	EntriesUpdated            prometheus.Counter
	EntriesDeleted            prometheus.Counter
	DocumentsAttached         prometheus.Counter
	AttachmentCleanupFailures *prometheus.CounterVec
	AccessDenied              *prometheus.CounterVec
	OperationDuration         *prometheus.HistogramVec
}

// New creates a new Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg, letting tests use an isolated registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EntriesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "rctrack_rc_entries_created_total",
			Help: "Total number of RC entries created",
		}),
		EntriesUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "rctrack_rc_entries_updated_total",
			Help: "Total number of RC entry updates",
		}),
		EntriesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "rctrack_rc_entries_deleted_total",
			Help: "Total number of RC entries deleted",
		}),
		DocumentsAttached: f.NewCounter(prometheus.CounterOpts{
			Name: "rctrack_rc_documents_attached_total",
			Help: "Total number of documents attached to RC entries",
		}),
		AttachmentCleanupFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_rc_attachment_cleanup_failures_total",
			Help: "Best-effort attachment deletions that failed, by operation",
		}, []string{"operation"}),
		AccessDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rctrack_rc_access_denied_total",
			Help: "Single-entry operations refused by the authorization guard, by action",
		}, []string{"action"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rctrack_rc_operation_duration_seconds",
			Help:    "Duration of RC lifecycle operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated()  { m.EntriesCreated.Inc() }
func (m *Metrics) IncrementUpdated()  { m.EntriesUpdated.Inc() }
func (m *Metrics) IncrementDeleted()  { m.EntriesDeleted.Inc() }
func (m *Metrics) IncrementAttached() { m.DocumentsAttached.Inc() }

// IncrementCleanupFailure records a failed best-effort attachment deletion.
// operation is "delete", "replace" or "rollback".
func (m *Metrics) IncrementCleanupFailure(operation string) {
	m.AttachmentCleanupFailures.WithLabelValues(operation).Inc()
}

// IncrementAccessDenied records a Forbidden outcome.
func (m *Metrics) IncrementAccessDenied(action string) {
	m.AccessDenied.WithLabelValues(action).Inc()
}

// ObserveOperation records the duration of a lifecycle operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
