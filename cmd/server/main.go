package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azure/brand-mentions-api/internal/alerts"
	"github.com/azure/brand-mentions-api/internal/api"
	"github.com/azure/brand-mentions-api/internal/auth"
	"github.com/azure/brand-mentions-api/internal/casestudy"
	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/filtering"
	"github.com/azure/brand-mentions-api/internal/ingestion"
	"github.com/azure/brand-mentions-api/internal/matching"
	"github.com/azure/brand-mentions-api/internal/monitoring"
	"github.com/azure/brand-mentions-api/internal/notifications"
	"github.com/azure/brand-mentions-api/internal/scheduler"
	"github.com/azure/brand-mentions-api/internal/sources"
	"github.com/azure/brand-mentions-api/internal/storage"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
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
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Brand Mentions API")

	db, err := store.Open(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	s := store.New(db)

	// The case study archive is optional
	var archive storage.Archive
	if cfg.StorageAccount != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		azureArchive, err := storage.NewAzureArchive(ctx, cfg.StorageAccount, cfg.StorageContainer)
		cancel()
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		archive = azureArchive
	} else {
		logrus.Warn("AZURE_STORAGE_ACCOUNT not set, case study archival disabled")
	}

	recorder := monitoring.NewRecorder()
	notificationService := notifications.NewService(cfg)
	engine := matching.NewEngine(s, notificationService, recorder)
	ingestionService := ingestion.NewService(cfg, s, engine, recorder,
		sources.Default(cfg.RedditClientID, cfg.RedditClientSecret))

	schedulerService := scheduler.NewService(cfg, ingestionService, engine)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	router := api.NewRouter(api.Services{
		Auth:        auth.NewService(s, cfg),
		Alerts:      alerts.NewService(s),
		Filtering:   filtering.NewService(s, cfg),
		Matching:    engine,
		Ingestion:   ingestionService,
		CaseStudies: casestudy.NewService(s, archive),
		Recorder:    recorder,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	schedulerService.Stop()

	// Let in-flight notifications finish
	engine.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logrus.Info("Server exited")
}
