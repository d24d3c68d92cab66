package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/easyshift/presence/internal/adapters/capture"
	"github.com/easyshift/presence/internal/adapters/http/api"
	"github.com/easyshift/presence/internal/adapters/store"
	service "github.com/easyshift/presence/internal/app"
	"github.com/easyshift/presence/internal/config"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/internal/domain/recognize"
	"github.com/easyshift/presence/internal/scansim"
	"github.com/easyshift/presence/pkg/logger"
	"github.com/easyshift/presence/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second

	// Simulated on-device inference latency for the reference engine.
	engineLatency = 120 * time.Millisecond
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, err := serviceOptions(ctx, cfg, loggerInstance)
	if err != nil {
		os.Stderr.WriteString("failed to wire service: " + err.Error() + "\n")
		return
	}

	// Create and start the service with configuration options
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// serviceOptions translates configuration into service wiring.
func serviceOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]service.Option, error) {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithCooldown(time.Duration(cfg.CooldownMS) * time.Millisecond),
		service.WithSamplingIntervals(
			time.Duration(cfg.FastIntervalMS)*time.Millisecond,
			time.Duration(cfg.SlowIntervalMS)*time.Millisecond,
		),
		service.WithSubmitAttempts(cfg.SubmitAttempts),
		service.WithSubmitBackoff(time.Duration(cfg.SubmitBackoffMS) * time.Millisecond),
		service.WithIdentityProvider(service.StaticIdentity{
			ID: model.Identity{UserID: cfg.UserID, Email: cfg.UserEmail},
		}),
	}

	if len(cfg.FacingOrder) > 0 {
		opts = append(opts, service.WithPreferredFacing(model.Facing(cfg.FacingOrder[0])))
	}

	if cfg.StoreDSN != "" {
		st, err := store.NewSQLiteStore(ctx, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithStore(st))
	}

	if cfg.NativeInference {
		opts = append(opts, service.WithEngine(
			recognize.NewMultiFormatEngine(recognize.WithEngineLatency(engineLatency)),
		))
	}

	// Platform camera bindings are deployment-specific; the simulated
	// camera stands in, showing the configured worker's badge code.
	src, err := cameraSource(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, service.WithSource(src))

	return opts, nil
}

func cameraSource(cfg *config.Config) (capture.Source, error) {
	payload := "BADGE-DEMO"
	if cfg.UserID != "" {
		payload = "BADGE-" + cfg.UserID
	}
	return scansim.NewCameraSource(payload)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
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
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
