package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kioko/matchpulse/internal/adapters/http/api"
	"github.com/kioko/matchpulse/internal/adapters/http/swagger"
	service "github.com/kioko/matchpulse/internal/app"
	"github.com/kioko/matchpulse/internal/config"
	"github.com/kioko/matchpulse/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

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
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithStreamPartitions(cfg.StreamPartitions),
		service.WithStreamBufferSize(cfg.StreamBufferSize),
		service.WithIngestChunkSize(cfg.IngestChunkSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithRetrySchedule(cfg.RetryMaxAttempts, time.Duration(cfg.RetryInitialBackoffMS)*time.Millisecond, cfg.RetryMultiplier),
		service.WithPumpBatchSize(cfg.PumpBatchSize),
		service.WithPumpLinger(time.Duration(cfg.PumpLingerMS)*time.Millisecond),
		service.WithHotStorePath(cfg.HotStorePath),
		service.WithStoreChunkSize(cfg.StoreChunkSize),
		service.WithRetention(
			time.Duration(cfg.EventTTLDays)*24*time.Hour,
			time.Duration(cfg.MetricTTLDays)*24*time.Hour,
			time.Duration(cfg.StatTTLDays)*24*time.Hour,
		),
		service.WithArchiveRoot(cfg.ArchiveRoot),
		service.WithConnectionTTL(time.Duration(cfg.ConnectionTTLMinutes)*time.Minute),
		service.WithSweepInterval(time.Duration(cfg.SweepIntervalSeconds)*time.Second),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	manager, err := svc.Manager()
	if err != nil {
		os.Stderr.WriteString("failed to get metrics manager: " + err.Error() + "\n")
		return
	}
	wsHandler, err := svc.WSHandler()
	if err != nil {
		os.Stderr.WriteString("failed to get websocket handler: " + err.Error() + "\n")
		return
	}

	// Runtime metrics ride on the same registry the pipeline reports to.
	manager.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API documentation routes.
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, manager, wsHandler)
	apiServer.Register(ctx, mux)

	// No WriteTimeout: /ws connections outlive any fixed response window.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
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
