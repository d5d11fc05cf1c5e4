package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/storm-data-radar/internal/adapter/http"
	"github.com/couchcryptid/storm-data-radar/internal/app"
	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
	"github.com/couchcryptid/storm-data-radar/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	p, err := app.NewPipeline(cfg, clockwork.NewRealClock(), metrics, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:            cfg.HTTPAddr,
		StaticDir:       cfg.StaticDir,
		UpdateFrequency: cfg.UpdateFrequency,
		CacheDuration:   cfg.CacheDuration,
	}, p, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Optional background refresh (PREFETCH_INTERVAL > 0).
	var prefetcher *scheduler.Prefetcher
	if cfg.PrefetchInterval > 0 {
		prefetcher = scheduler.NewPrefetcher(p, cfg.PrefetchInterval, logger)
		if err := prefetcher.Start(ctx); err != nil {
			logger.Error("prefetch disabled", "error", err)
			prefetcher = nil
		}
	} else {
		logger.Info("prefetch disabled, cache refreshes on demand")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if prefetcher != nil {
		prefetcher.Stop()
	}

	logger.Info("shutdown complete")
}
