package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/datahaven/aclfs/internal/logger"
	"github.com/datahaven/aclfs/internal/server"
	"github.com/datahaven/aclfs/pkg/acl"
	"github.com/datahaven/aclfs/pkg/config"
	"github.com/datahaven/aclfs/pkg/datasite"
	"github.com/datahaven/aclfs/pkg/feed"
	"github.com/datahaven/aclfs/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
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
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("ACLFS - Datasite Permission Server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Workspace root: %s", cfg.Workspace.Root)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Prometheus metrics enabled")
	}
	aclMetrics := metrics.NewACLMetrics()

	// Cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Change-feed journal and hub
	journal, err := config.CreateJournal(ctx, &cfg.Feed)
	if err != nil {
		log.Fatalf("Failed to create feed journal: %v", err)
	}
	hub := feed.NewHub(journal, aclMetrics)
	defer func() {
		if err := hub.Close(); err != nil {
			logger.Warn("Failed to close feed hub: %v", err)
		}
	}()
	logger.Info("Change feed journal: %s", cfg.Feed.Type)

	// Policy version archive (nil when disabled)
	archiveStore, err := config.CreateArchiveStore(ctx, &cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to create archive store: %v", err)
	}
	logger.Info("Policy archive: %s", cfg.Archive.Type)

	// Resolution engine
	service, err := acl.NewService(cfg.Workspace.Root, acl.ServiceConfig{
		Feed:    hub,
		Archive: archiveStore,
		Metrics: aclMetrics,
	})
	if err != nil {
		log.Fatalf("Failed to create permission service: %v", err)
	}

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
	}, service, datasite.NewLister(service), hub)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", cfg.Server.Addr)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
