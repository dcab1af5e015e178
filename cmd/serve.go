package main

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okian/hiscores/internal/adapters/http/api"
	"github.com/okian/hiscores/internal/adapters/http/swagger"
	service "github.com/okian/hiscores/internal/app"
	"github.com/okian/hiscores/internal/config"
	"github.com/okian/hiscores/pkg/logger"
	"github.com/okian/hiscores/pkg/metrics"
	"github.com/urfave/cli/v2"
)

func serveAction(c *cli.Context) error {
	ctx := c.Context
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, _, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	return serve(ctx, cfg, svc)
}

// buildRouter wires the API and docs routes.
func buildRouter(ctx context.Context, svc *service.Service) chi.Router {
	r := api.NewRouter(ctx, api.NewServer(svc, svc, svc.MaxLimit()))
	swagger.Register(ctx, r)
	return r
}

// serve runs the HTTP server and the background loops until ctx ends.
func serve(ctx context.Context, cfg *config.Config, svc *service.Service) error {
	log := logger.Get().Named("server")

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go runEvery(ctx, cfg.UpdateInterval(), "update job", log, func(ctx context.Context) error {
		_, err := svc.RunUpdateJob(ctx)
		return err
	})
	go runEvery(ctx, cfg.HistoryInterval(), "history snapshot", log, func(ctx context.Context) error {
		_, _, err := svc.RecordSnapshot(ctx)
		return err
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildRouter(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// runEvery calls fn every interval until ctx ends. A non-positive interval
// disables the loop. Failures are logged and the loop continues.
func runEvery(ctx context.Context, interval time.Duration, name string, log logger.Logger, fn func(context.Context) error) {
	if interval <= 0 {
		log.Info(ctx, "scheduled task disabled", logger.String("task", name))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := fn(ctx)
			switch {
			case err == nil:
			case isJobOverlap(err):
				log.Info(ctx, "previous run still in progress, skipping tick", logger.String("task", name))
			case ctx.Err() != nil:
				return
			default:
				log.Error(ctx, "scheduled task failed", logger.String("task", name), logger.Error(err))
			}
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
