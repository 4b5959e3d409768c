package service

import (
	"context"
	"errors"
	"log/slog"

	"rctrack/internal/dashboard/metrics"
	"rctrack/internal/dashboard/models"
	"rctrack/internal/dashboard/store"
	rcmodels "rctrack/internal/rc/models"
	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/middleware/request"
)

const keyAll = "all"

// EntryLister is the read side of the RC entry repository.
type EntryLister interface {
	FindAll(ctx context.Context, filter rcmodels.Filter) ([]*rcmodels.Entry, error)
}

// Cache holds computed stats by scope key. Every key has a version that
// Invalidate advances; SetIfVersion refuses values computed under an older one.
type Cache interface {
	Get(ctx context.Context, key string) (models.Stats, error)
	Version(ctx context.Context, key string) (uint64, error)
	SetIfVersion(ctx context.Context, key string, version uint64, s models.Stats) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service computes dashboard stats for a scope, serving them from the cache when
// possible. Cache failures degrade to recomputing and are never returned.
type Service struct {
	entries EntryLister
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(entries EntryLister, opts ...Option) *Service {
	s := &Service{
		entries: entries,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dashboard returns the stats for scope as seen by p. ScopeAll counts every entry;
// ScopeOwner counts the entries p created.
func (s *Service) Dashboard(ctx context.Context, p domain.Principal, scope models.Scope) (*models.Dashboard, error) {
	if p.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var (
		filter rcmodels.Filter
		key    string
	)
	switch scope {
	case models.ScopeAll:
		key = keyAll
	case models.ScopeOwner:
		filter = rcmodels.OwnedBy(p.ID)
		key = ownerKey(p.ID)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown dashboard scope")
	}

	stats, err := s.stats(ctx, scope, key, filter)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		Scope:     scope,
		OwnerName: p.Name,
		RCStats:   stats,
	}, nil
}

func (s *Service) stats(ctx context.Context, scope models.Scope, key string, filter rcmodels.Filter) (models.Stats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			s.incrementHit(scope)
			return cached, nil
		}
		if !errors.Is(err, store.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "stats cache read failed",
				"error", err,
				"key", key,
				"request_id", request.GetRequestID(ctx),
			)
			s.incrementCacheError("get")
		}
	}
	s.incrementMiss(scope)

	version, cacheable := s.version(ctx, key)

	entries, err := s.entries.FindAll(ctx, filter)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rc entries")
	}
	stats := models.ComputeStats(entries)

	if cacheable {
		err := s.cache.SetIfVersion(ctx, key, version, stats)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrStaleVersion):
			s.logger.DebugContext(ctx, "stats changed while computing, not cached",
				"key", key,
				"request_id", request.GetRequestID(ctx),
			)
		default:
			s.logger.WarnContext(ctx, "stats cache write failed",
				"error", err,
				"key", key,
				"request_id", request.GetRequestID(ctx),
			)
			s.incrementCacheError("set")
		}
	}
	return stats, nil
}

// version reads the cache version of key before the entries are loaded. A
// false result means the computed stats must not be cached.
func (s *Service) version(ctx context.Context, key string) (uint64, bool) {
	if s.cache == nil {
		return 0, false
	}
	v, err := s.cache.Version(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "stats cache version read failed",
			"error", err,
			"key", key,
			"request_id", request.GetRequestID(ctx),
		)
		s.incrementCacheError("version")
		return 0, false
	}
	return v, true
}

// Invalidate drops the all-scope stats and the stats of owner. It satisfies the
// RC service's StatsInvalidator.
func (s *Service) Invalidate(ctx context.Context, owner domain.UserID) error {
	if s.cache == nil {
		return nil
	}
	keys := []string{keyAll}
	if !owner.IsNil() {
		keys = append(keys, ownerKey(owner))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.incrementCacheError("invalidate")
		return err
	}
	return nil
}

func ownerKey(id domain.UserID) string {
	return "owner:" + id.String()
}

func (s *Service) incrementHit(scope models.Scope) {
	if s.metrics != nil {
		s.metrics.IncrementHit(string(scope))
	}
}

func (s *Service) incrementMiss(scope models.Scope) {
	if s.metrics != nil {
		s.metrics.IncrementMiss(string(scope))
	}
}

func (s *Service) incrementCacheError(op string) {
	if s.metrics != nil {
		s.metrics.IncrementCacheError(op)
	}
}
