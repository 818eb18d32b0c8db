package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/squid/internal/adapters/http/api"
	app "github.com/okian/squid/internal/app"
	"github.com/okian/squid/internal/config"
	"github.com/okian/squid/pkg/logger"
	"github.com/okian/squid/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithLogger(loggerInstance.Named("service")),
		app.WithHalfLife(cfg.HalfLife()),
		app.WithBaseWeight(cfg.BaseWeight),
		app.WithScoreFloor(cfg.ScoreFloor),
		app.WithDedupeCapacity(cfg.DedupeCapacity),
		app.WithDedupeFalsePositiveRate(cfg.DedupeFPRate),
		app.WithLeaderboardSize(cfg.LeaderboardSize),
		app.WithReconcileInterval(cfg.ReconcileInterval()),
		app.WithSnapshotInterval(cfg.SnapshotInterval()),
		app.WithSweepInterval(cfg.SweepInterval()),
		app.WithSnapshotPath(cfg.SnapshotPath),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithShardCount(cfg.ShardCount),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc, cfg.EventQueueSize)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	apiServer := api.NewServer(svc, svc,
		api.WithMaxK(cfg.LeaderboardSize),
		api.WithMaxTermLength(cfg.MaxTermLength),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater periodically refreshes gauges derived from
// service state.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, queueCapacity int) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats()
			if n, ok := stats["trackedTerms"].(int); ok {
				metrics.UpdateTermsTracked(n)
			}
			if n, ok := stats["queueLength"].(int); ok {
				metrics.UpdateQueueSize(n)
				if queueCapacity > 0 {
					metrics.UpdateQueueUtilization(float64(n) / float64(queueCapacity))
				}
			}
		}
	}
}
