package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/adapter"
	httpadapter "github.com/casahub/casahub/pkg/adapter/http"
	"github.com/casahub/casahub/pkg/config"
	"github.com/casahub/casahub/pkg/facade"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: search standard locations)")
	logLevel := flag.String("log-level", "", "Override configured log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)

	fmt.Println("CasaHub - Listing Catalog and Media Server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := facade.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := app.Close(shutdownCtx); err != nil {
			logger.Error("Application close error: %v", err)
		}
	}()

	// Log server configuration
	logger.Info("Server configuration:")
	logger.Info("  Listen address: %s", cfg.Server.ListenAddress)
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	logger.Info("  Chunk store: %s", cfg.Chunks.Type)
	logger.Info("  Record store: %s", cfg.Records.Type)
	logger.Info("  Listing source: %s", cfg.Catalog.Type)
	if cfg.Metrics.Enabled {
		logger.Info("  Metrics: enabled at /metrics")
	} else {
		logger.Info("  Metrics: disabled")
	}

	var srv adapter.Adapter = httpadapter.New(app, httpadapter.HTTPConfig{
		ListenAddress:   cfg.Server.ListenAddress,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", cfg.Server.ListenAddress)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
