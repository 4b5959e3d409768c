package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rctrack/internal/rc/attachment"
	"rctrack/internal/rc/authz"
	"rctrack/internal/rc/metrics"
	"rctrack/internal/rc/models"
	"rctrack/pkg/domain"
	audit "rctrack/pkg/platform/audit"
	"rctrack/pkg/platform/middleware/metadata"
	"rctrack/pkg/platform/middleware/request"
	"rctrack/pkg/requestcontext"
)

const tracerName = "rctrack/internal/rc/service"

type Store interface {
	Create(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, id domain.EntryID) (*models.Entry, error)
	FindAll(ctx context.Context, filter models.Filter) ([]*models.Entry, error)
	Update(ctx context.Context, id domain.EntryID, patch models.Patch) (*models.Entry, error)
	Delete(ctx context.Context, id domain.EntryID) error
}

type AttachmentStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	Delete(ctx context.Context, name string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// StatsInvalidator drops cached dashboard counts affected by a change to an
// entry created by owner.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, owner domain.UserID) error
}

// Service is the RC entry lifecycle manager. Every single-entry operation loads the
// entry, consults the guard, then touches the store and the attachment store.
// The two stores are not transactionally coupled: the record is authoritative and
// attachment cleanup is best-effort.
type Service struct {
	store          Store
	attachments    AttachmentStore
	locator        attachment.Locator
	guard          authz.Guard
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	stats          StatsInvalidator
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithGuard(g authz.Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

func WithStatsInvalidator(inv StatsInvalidator) Option {
	return func(s *Service) {
		s.stats = inv
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service. locator maps stored pdfUrl values to attachment names.
func New(store Store, attachments AttachmentStore, locator attachment.Locator, opts ...Option) *Service {
	s := &Service{
		store:       store,
		attachments: attachments,
		locator:     locator,
		guard:       authz.New(),
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "rc."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) emitAudit(ctx context.Context, p domain.Principal, event audit.AuditEvent, entry *models.Entry, decision, reason string) {
	if s.auditPublisher == nil {
		return
	}
	ev := audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		UserID:    p.ID,
		Action:    string(event),
		Decision:  decision,
		Reason:    reason,
		RequestID: request.GetRequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Client:    metadata.ClientDescription(ctx),
	}
	if entry != nil {
		ev.Subject = entry.ID.String()
		if entry.CreatedBy != p.ID {
			ev.ActorID = entry.CreatedBy.String()
		}
	}
	if err := s.auditPublisher.Emit(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"error", err,
			"action", ev.Action,
			"request_id", ev.RequestID,
		)
	}
}

func (s *Service) invalidateStats(ctx context.Context, owner domain.UserID) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate dashboard stats",
			"error", err,
			"user_id", owner.String(),
			"request_id", request.GetRequestID(ctx),
		)
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}

func (s *Service) incrementAccessDenied(action authz.Action) {
	if s.metrics != nil {
		s.metrics.IncrementAccessDenied(string(action))
	}
}

func (s *Service) incrementCleanupFailure(operation string) {
	if s.metrics != nil {
		s.metrics.IncrementCleanupFailure(operation)
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
}

func (s *Service) incrementUpdated() {
	if s.metrics != nil {
		s.metrics.IncrementUpdated()
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
}

func (s *Service) incrementAttached() {
	if s.metrics != nil {
		s.metrics.IncrementAttached()
	}
}
