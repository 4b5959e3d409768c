package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rctrack/internal/ratelimit/metrics"
	"rctrack/internal/ratelimit/models"
	"rctrack/internal/ratelimit/store"
	"rctrack/pkg/testutil"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, models.Policy) (*models.Result, error) {
	return nil, errors.New("limiter offline")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newMiddleware(limiter Limiter, limit int) (*Middleware, *metrics.Metrics) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	return New(limiter, models.Policy{Limit: limit, Window: time.Minute},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
	), m
}

func TestWrites(t *testing.T) {
	alice := testutil.NewStaff("alice")
	bob := testutil.NewStaff("bob")

	t.Run("rejects writes over the limit", func(t *testing.T) {
		mw, m := newMiddleware(store.NewInMemory(), 2)
		h := mw.Writes(okHandler())

		for i := range 2 {
			rr := testutil.DoRequest(h, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/rc"), alice))
			require.Equal(t, http.StatusOK, rr.Code, "request %d", i)
			assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		}

		rr := testutil.DoRequest(h, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPut, "/rc/x"), alice))
		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Rejected.WithLabelValues(http.MethodPut)))
	})

	t.Run("reads are never limited", func(t *testing.T) {
		mw, _ := newMiddleware(store.NewInMemory(), 1)
		h := mw.Writes(okHandler())

		for range 5 {
			rr := testutil.DoRequest(h, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodGet, "/rc"), alice))
			testutil.AssertStatusOK(t, rr)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("principals have separate budgets", func(t *testing.T) {
		mw, _ := newMiddleware(store.NewInMemory(), 1)
		h := mw.Writes(okHandler())

		rr := testutil.DoRequest(h, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodDelete, "/rc/1"), alice))
		testutil.AssertStatusOK(t, rr)
		rr = testutil.DoRequest(h, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodDelete, "/rc/2"), bob))
		testutil.AssertStatusOK(t, rr)
		rr = testutil.DoRequest(h, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodDelete, "/rc/3"), alice))
		testutil.AssertStatus(t, rr, http.StatusTooManyRequests)
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		mw, m := newMiddleware(failingLimiter{}, 1)
		rr := testutil.DoRequest(mw.Writes(okHandler()),
			testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/rc"), alice))
		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StoreErrors))
	})

	t.Run("zero limit disables", func(t *testing.T) {
		mw, _ := newMiddleware(failingLimiter{}, 0)
		for range 3 {
			rr := testutil.DoRequest(mw.Writes(okHandler()),
				testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/rc"), alice))
			testutil.AssertStatusOK(t, rr)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
		}
	})
}
