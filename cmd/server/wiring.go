package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dashboardhandler "rctrack/internal/dashboard/handler"
	dashboardmetrics "rctrack/internal/dashboard/metrics"
	dashboardservice "rctrack/internal/dashboard/service"
	dashboardstore "rctrack/internal/dashboard/store"
	jwttoken "rctrack/internal/jwt_token"
	"rctrack/internal/platform/config"
	httpmetrics "rctrack/internal/platform/metrics"
	platformmiddleware "rctrack/internal/platform/middleware"
	"rctrack/internal/platform/postgres"
	platformredis "rctrack/internal/platform/redis"
	ratelimitmetrics "rctrack/internal/ratelimit/metrics"
	ratelimitmw "rctrack/internal/ratelimit/middleware"
	ratelimitmodels "rctrack/internal/ratelimit/models"
	ratelimitstore "rctrack/internal/ratelimit/store"
	"rctrack/internal/rc/attachment"
	rchandler "rctrack/internal/rc/handler"
	rcmetrics "rctrack/internal/rc/metrics"
	rcservice "rctrack/internal/rc/service"
	rcstore "rctrack/internal/rc/store"
	audit "rctrack/pkg/platform/audit"
	auditpublisher "rctrack/pkg/platform/audit/publisher"
	auditkafka "rctrack/pkg/platform/audit/store/kafka"
	auditmemory "rctrack/pkg/platform/audit/store/memory"
	auditpostgres "rctrack/pkg/platform/audit/store/postgres"
	"rctrack/pkg/platform/httputil"
	"rctrack/pkg/platform/middleware/admin"
	"rctrack/pkg/platform/middleware/auth"
	"rctrack/pkg/platform/middleware/metadata"
	"rctrack/pkg/platform/middleware/request"
	"rctrack/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout   = 30 * time.Second
	readinessTimeout = 2 * time.Second
	limiterSweep     = time.Minute
)

type entryRepository interface {
	rcservice.Store
	dashboardservice.EntryLister
}

type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

// dependencies holds the long-lived collaborators built from config.
type dependencies struct {
	entries        entryRepository
	attachments    attachment.Store
	locator        attachment.Locator
	statsCache     dashboardservice.Cache
	audit          *auditpublisher.Publisher
	revocation     auth.TokenRevocationChecker
	writeLimiter   *ratelimitstore.InMemory
	readiness      []readinessCheck
	closers        []func()
	repositoryKind string
	auditKind      string
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDependencies(ctx context.Context, cfg config.Server, log *slog.Logger) (*dependencies, error) {
	d := &dependencies{
		locator:      attachment.NewLocator(cfg.Attachment.URLRoot),
		writeLimiter: ratelimitstore.NewInMemory(),
	}
	d.writeLimiter.StartSweeper(ctx, limiterSweep)
	var db *sql.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			d.close()
			return nil, err
		}
		d.entries = rcstore.NewPostgres(db)
		d.repositoryKind = "postgres"
		d.readiness = append(d.readiness, readinessCheck{"postgres", db.PingContext})
	} else {
		d.entries = rcstore.NewInMemory()
		d.repositoryKind = "memory"
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		d.close()
		return nil, err
	}
	if redisClient != nil {
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
		d.statsCache = dashboardstore.NewRedisCache(redisClient.Client, cfg.Stats.CacheTTL)
		d.revocation = platformredis.NewTokenDenylist(redisClient.Client)
		d.readiness = append(d.readiness, readinessCheck{"redis", redisClient.Health})
	} else {
		d.statsCache = dashboardstore.NewMemoryCache(cfg.Stats.CacheTTL)
	}

	switch cfg.Attachment.Backend {
	case config.AttachmentBackendS3:
		s3Store, err := attachment.NewS3Store(ctx, cfg.Attachment.S3)
		if err != nil {
			d.close()
			return nil, err
		}
		d.attachments = s3Store
		d.readiness = append(d.readiness, readinessCheck{"s3", s3Store.Health})
	default:
		local, err := attachment.NewLocalStore(cfg.Attachment.Dir)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = local.Close() })
		d.attachments = local
	}

	var sink audit.Store
	switch {
	case len(cfg.Audit.KafkaBrokers) > 0:
		k, err := auditkafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			d.close()
			return nil, err
		}
		if err := k.EnsureTopic(ctx, 1, 1); err != nil {
			log.Warn("could not ensure audit topic", "error", err, "topic", cfg.Audit.Topic)
		}
		d.closers = append(d.closers, k.Close)
		d.readiness = append(d.readiness, readinessCheck{"kafka", k.Health})
		sink, d.auditKind = k, "kafka"
	case db != nil:
		sink, d.auditKind = auditpostgres.New(db), "postgres"
	default:
		sink, d.auditKind = auditmemory.NewInMemoryStore(), "memory"
	}
	d.audit = auditpublisher.NewPublisher(sink,
		auditpublisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		auditpublisher.WithLogger(log),
	)
	// Registered last so buffered events flush before the sinks close.
	d.closers = append(d.closers, d.audit.Close)

	return d, nil
}

func newRouter(cfg config.Server, log *slog.Logger, d *dependencies) http.Handler {
	httpMetrics := httpmetrics.New()

	dashboard := dashboardservice.New(d.entries,
		dashboardservice.WithCache(d.statsCache),
		dashboardservice.WithLogger(log),
		dashboardservice.WithMetrics(dashboardmetrics.New()),
	)
	rc := rcservice.New(d.entries, d.attachments, d.locator,
		rcservice.WithLogger(log),
		rcservice.WithAuditPublisher(d.audit),
		rcservice.WithMetrics(rcmetrics.New()),
		rcservice.WithStatsInvalidator(dashboard),
	)
	writes := ratelimitmw.New(d.writeLimiter, ratelimitmodels.PerMinute(cfg.RateLimit.WritesPerMinute),
		ratelimitmw.WithLogger(log),
		ratelimitmw.WithMetrics(ratelimitmetrics.New()),
	)
	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer))

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(platformmiddleware.CORS(cfg.CORSOrigin))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(request.Latency(httpMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})
	r.Get("/readyz", readyHandler(log, d.readiness))
	r.With(admin.RequireAdminToken(cfg.AdminToken, log)).Handle("/metrics", promhttp.Handler())

	attachment.NewFileServer(d.attachments, d.locator, log).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(requestTimeout))
		r.Use(auth.RequireAuth(validator, d.revocation, log))
		r.Use(writes.Writes)
		rchandler.New(rc, log, cfg.Attachment.MaxBytes).Register(r)
		dashboardhandler.New(dashboard, log).Register(r)
	})
	return r
}

func readyHandler(log *slog.Logger, checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		ready := true
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				log.WarnContext(ctx, "readiness check failed",
					"check", c.name,
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				status[c.name] = "unavailable"
				ready = false
				continue
			}
			status[c.name] = "ok"
		}

		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, map[string]any{"success": ready, "checks": status})
	}
}
