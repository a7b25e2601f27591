// Command serve runs the city stats dashboard API over the dataset file and
// reloads it whenever a refresh rewrites the file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	httpadapter "github.com/couchcryptid/city-stats-service/internal/adapter/http"
	"github.com/couchcryptid/city-stats-service/internal/catalog"
	"github.com/couchcryptid/city-stats-service/internal/config"
	"github.com/couchcryptid/city-stats-service/internal/observability"
)

// watcher adapts catalog reloads to suture.Service.
type watcher struct {
	catalog *catalog.Catalog
}

func (w watcher) Serve(ctx context.Context) error { return w.catalog.Watch(ctx) }

func (watcher) String() string { return "dataset-watcher" }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	cat := catalog.New(cfg.DatasetPath, metrics, logger)
	if err := cat.Load(); err != nil {
		// Readiness stays false until the watcher sees a valid file.
		logger.Error("initial dataset load failed", "path", cfg.DatasetPath, "error", err)
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:              cfg.HTTPAddr,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		CORSOrigins:       cfg.CORSOrigins,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}, cat, logger)

	hook := &sutureslog.Handler{Logger: logger}
	root := suture.New("city-stats", suture.Spec{
		EventHook:      hook.MustHook(),
		FailureBackoff: 15 * time.Second,
		Timeout:        cfg.ShutdownTimeout,
	})
	root.Add(srv)
	root.Add(watcher{catalog: cat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving city stats", "addr", cfg.HTTPAddr, "dataset", cfg.DatasetPath)
	err = root.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("supervisor stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
