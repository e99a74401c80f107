package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/events"
	"github.com/soltixdb/forecaster/internal/handlers"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/metrics"
	"github.com/soltixdb/forecaster/internal/pipeline"
	"github.com/soltixdb/forecaster/internal/router"
	"github.com/soltixdb/forecaster/internal/services"
	"github.com/soltixdb/forecaster/internal/webhook"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Forecaster service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)
	if Version != "dev" {
		handlers.Version = Version
	}

	// Lifecycle event publisher (configurable backend)
	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal("Failed to create event publisher", "type", cfg.Events.Type, "error", err)
	}
	emitter := events.NewEmitter(publisher, cfg.Events.Subject, logger)
	if cfg.Events.Enabled {
		logger.Info("Lifecycle events enabled", "type", cfg.Events.Type, "subject", cfg.Events.Subject)
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	p, err := pipeline.New(logger, cfg.Pipeline)
	if err != nil {
		logger.Fatal("Failed to build pipeline", "error", err)
	}

	client, err := webhook.New(webhook.Config{
		Timeout: cfg.Callback.Timeout(),
		APIKey:  cfg.Callback.APIKey,
	})
	if err != nil {
		logger.Fatal("Failed to create webhook client", "error", err)
	}

	predictService := services.NewPredictService(logger, p, client, emitter, recorder, cfg)

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("Token authentication enabled", "num_tokens", len(cfg.Auth.Tokens()))
	} else {
		logger.Warn("Token authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, predictService, recorder, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Finish queued asynchronous requests before closing the publisher
	predictService.Stop()
	if err := emitter.Close(); err != nil {
		logger.Error("Failed to close event publisher", "error", err)
	}

	logger.Info("Server exited")
}
