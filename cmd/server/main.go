package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rctrack/internal/platform/config"
	"rctrack/internal/platform/httpserver"
	"rctrack/internal/platform/logger"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies, exposes the HTTP router and owns the server lifecycle.
// Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	srv := httpserver.New(cfg.Addr, newRouter(cfg, log, deps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting rctrack",
			"addr", cfg.Addr,
			"environment", cfg.Environment,
			"repository", deps.repositoryKind,
			"attachments", cfg.Attachment.Backend,
			"audit_sink", deps.auditKind,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		return err
	}
	return nil
}
