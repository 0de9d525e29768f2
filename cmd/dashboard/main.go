// Command dashboard serves the COVID-19 dashboard data API. It fetches the
// JHU CSSE time series on demand, transforms them into analysis-ready tables,
// and caches the result for the configured TTL.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/covid-data-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/covid-data-service/internal/adapter/jhu"
	"github.com/couchcryptid/covid-data-service/internal/cache"
	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/couchcryptid/covid-data-service/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	fetcher := jhu.NewClient(cfg.SourceURLs(), cfg.FetchTimeout, logger)
	p := pipeline.New(fetcher, logger, metrics)
	snapshot := cache.New(p, cfg.CacheTTL, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, snapshot, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional scheduled pre-warm so interactive callers rarely pay the
	// refresh latency.
	var scheduler *cron.Cron
	if cfg.RefreshSchedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
			refreshCtx, cancel := context.WithTimeout(ctx, 3*cfg.FetchTimeout)
			defer cancel()
			if _, err := snapshot.Refresh(refreshCtx); err != nil {
				logger.Error("scheduled refresh failed", "error", err)
			}
		})
		if err != nil {
			logger.Error("failed to schedule refresh", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		logger.Info("scheduled refresh enabled", "schedule", cfg.RefreshSchedule)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the cache in the background; the first API caller triggers a
	// refresh anyway if this fails.
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 3*cfg.FetchTimeout)
		defer cancel()
		if _, err := snapshot.Get(warmCtx); err != nil {
			logger.Warn("initial dataset load failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		stopCtx := scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("scheduler did not stop in time")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
