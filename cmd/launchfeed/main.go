package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchwatch/launchcoin-feed/internal/api"
	"github.com/launchwatch/launchcoin-feed/internal/config"
	"github.com/launchwatch/launchcoin-feed/internal/monitoring"
	"github.com/launchwatch/launchcoin-feed/internal/notifications"
	"github.com/launchwatch/launchcoin-feed/internal/scheduler"
	"github.com/launchwatch/launchcoin-feed/internal/sources"
	"github.com/launchwatch/launchcoin-feed/internal/storage"
	"github.com/sirupsen/logrus"
)

const envPath = ".env"

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Create a template .env on first run so credentials have an obvious home
	created, err := config.EnsureEnvFile(envPath)
	if err != nil {
		logrus.Warnf("Could not create %s: %v", envPath, err)
	} else if created {
		logrus.Infof("Created .env file at %s. Please update it with valid credentials.", envPath)
	}

	if err := godotenv.Load(envPath); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.Info("Starting launchcoin feed")

	staticDir, err := filepath.Abs(cfg.StaticDir)
	if err != nil {
		logrus.Fatalf("Invalid static folder %s: %v", cfg.StaticDir, err)
	}
	logrus.Infof("Static folder path: %s", staticDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	twitter := sources.NewTwitterSource(cfg.TwitterAPIBaseURL, cfg.TwitterBearerToken, cfg.MinRequestInterval)
	monitoringService := monitoring.NewService(cfg, twitter)

	var archive storage.StorageInterface
	if cfg.ArchiveEnabled() {
		azureStorage, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		archive = azureStorage
	}

	var notifier notifications.NotificationInterface
	if cfg.DigestEnabled() {
		notifier = notifications.NewService(cfg)
	}

	schedulerService := scheduler.NewService(cfg, monitoringService, archive, notifier)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if err := monitoringService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.Errorf("Polling stopped unexpectedly: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewRouter(monitoringService.Reader(), monitoringService, staticDir),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	<-pollerDone

	logrus.Info("Server exited")
}
