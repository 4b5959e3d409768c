package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"rctrack/internal/ratelimit/models"
	dErrors "rctrack/pkg/domain-errors"
	"rctrack/pkg/platform/httputil"
	"rctrack/pkg/requestcontext"
)

// Limiter decides whether one more request for key fits the policy.
type Limiter interface {
	Allow(ctx context.Context, key string, policy models.Policy) (*models.Result, error)
}

type Metrics interface {
	IncrementRejected(method string)
	IncrementStoreError()
}

type Middleware struct {
	limiter Limiter
	policy  models.Policy
	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(limiter Limiter, policy models.Policy, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		policy:  policy,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Writes limits POST, PUT, PATCH and DELETE per authenticated principal, falling
// back to the client IP for anonymous requests. Reads pass through untouched.
// A failing limiter lets the request through.
func (m *Middleware) Writes(next http.Handler) http.Handler {
	if !m.policy.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isWrite(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		result, err := m.limiter.Allow(ctx, limitKey(ctx), m.policy)
		if err != nil {
			m.logger.WarnContext(ctx, "rate limit check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			if m.metrics != nil {
				m.metrics.IncrementStoreError()
			}
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.logger.InfoContext(ctx, "write rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"user_id", requestcontext.UserID(ctx).String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			if m.metrics != nil {
				m.metrics.IncrementRejected(r.Method)
			}
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Too many changes, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func limitKey(ctx context.Context) string {
	if p, ok := requestcontext.Principal(ctx); ok && !p.ID.IsNil() {
		return "user:" + p.ID.String()
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
