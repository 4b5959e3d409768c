package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardstore "rctrack/internal/dashboard/store"
	jwttoken "rctrack/internal/jwt_token"
	"rctrack/internal/platform/config"
	ratelimitstore "rctrack/internal/ratelimit/store"
	"rctrack/internal/rc/attachment"
	rcstore "rctrack/internal/rc/store"
	auditpublisher "rctrack/pkg/platform/audit/publisher"
	auditmemory "rctrack/pkg/platform/audit/store/memory"
	"rctrack/pkg/platform/middleware/admin"
	"rctrack/pkg/testutil"
)

const testSecret = "wiring-test-secret"

func testConfig() config.Server {
	return config.Server{
		AdminToken: "ops-token",
		JWT:        config.JWTConfig{SigningKey: testSecret},
		Attachment: config.AttachmentConfig{URLRoot: "/utils/uploads", MaxBytes: 1 << 20},
		Stats:      config.StatsConfig{CacheTTL: time.Minute},
		RateLimit:  config.RateLimitConfig{WritesPerMinute: 2},
	}
}

func testDependencies() *dependencies {
	return &dependencies{
		entries:      rcstore.NewInMemory(),
		attachments:  attachment.NewInMemory(),
		locator:      attachment.NewLocator("/utils/uploads"),
		statsCache:   dashboardstore.NewMemoryCache(time.Minute),
		audit:        auditpublisher.NewPublisher(auditmemory.NewInMemoryStore()),
		writeLimiter: ratelimitstore.NewInMemory(),
		readiness: []readinessCheck{
			{"memory", func(context.Context) error { return nil }},
			{"s3", func(context.Context) error { return errors.New("bucket gone: secret-detail") }},
		},
	}
}

func bearer(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	token, err := jwttoken.NewJWTService(testSecret, "").
		GenerateAccessToken(testutil.NewStaff("alice"), time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// The router registers its collectors on the default Prometheus registry, so it is
// built once for the whole package.
func TestRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := newRouter(testConfig(), logger, testDependencies())

	testutil.Given(t, "the assembled router", func(t *testing.T) {
		testutil.When(t, "probing liveness", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it answers ok with a request id", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
			})
		})

		testutil.When(t, "probing readiness with a failing backend", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/readyz"))

			testutil.Then(t, "it reports unavailable without leaking the cause", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
				assert.JSONEq(t, `{"success":false,"checks":{"memory":"ok","s3":"unavailable"}}`, rr.Body.String())
				assert.NotContains(t, rr.Body.String(), "secret-detail")
			})
		})

		testutil.When(t, "scraping metrics", func(t *testing.T) {
			anonymous := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
			req := testutil.NewRequest(t, http.MethodGet, "/metrics")
			req.Header.Set(admin.HeaderAdminToken, "ops-token")
			operator := testutil.DoRequest(router, req)

			testutil.Then(t, "only the operator token is admitted", func(t *testing.T) {
				testutil.AssertStatusAndError(t, anonymous, http.StatusUnauthorized, "unauthorized")
				testutil.AssertStatusOK(t, operator)
				assert.True(t, strings.Contains(operator.Body.String(), "rctrack_"))
			})
		})

		testutil.When(t, "calling the RC API without a token", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/rc"))

			testutil.Then(t, "it is rejected", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "an authenticated user keeps writing", func(t *testing.T) {
			body := map[string]any{
				"vehicleName":    "Swift",
				"vehicleRegNo":   "MH12AB1234",
				"ownerName":      "Asha",
				"ownerPhone":     "9000000001",
				"applicantName":  "Kiran",
				"applicantPhone": "9000000002",
				"work":           "ownership transfer",
			}
			first := testutil.DoRequest(router, bearer(t, testutil.NewJSONRequest(t, http.MethodPost, "/rc", body)))
			second := testutil.DoRequest(router, bearer(t, testutil.NewJSONRequest(t, http.MethodPost, "/rc", body)))
			third := testutil.DoRequest(router, bearer(t, testutil.NewJSONRequest(t, http.MethodPost, "/rc", body)))
			stats := testutil.DoRequest(router, bearer(t, testutil.NewRequest(t, http.MethodGet, "/dashboard")))

			testutil.Then(t, "writes are served until the budget runs out", func(t *testing.T) {
				testutil.AssertStatus(t, first, http.StatusCreated)
				testutil.AssertStatusAndError(t, second, http.StatusBadRequest, "validation_error")
				testutil.AssertStatusAndError(t, third, http.StatusTooManyRequests, "rate_limited")
			})

			testutil.Then(t, "reads still work and see the new entry", func(t *testing.T) {
				testutil.AssertStatusOK(t, stats)
				testutil.AssertJSONHasKey(t, stats, "data")
				assert.Contains(t, stats.Body.String(), `"totalRc":1`)
			})
		})
	})
}
