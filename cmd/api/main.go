package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"revdash/internal/api"
	"revdash/internal/api/handlers"
	"revdash/internal/dashboard"
	"revdash/internal/export"
	"revdash/internal/jobs/inmemory"
	"revdash/internal/logger"
	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var (
		port       = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		projectID  = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT)")
		dataset    = flag.String("dataset", envOr("BQ_DATASET", "revenue"), "BigQuery dataset holding the raw tables")
		bucket     = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for async exports (or set GCS_BUCKET)")
		schemaPath = flag.String("schema-config", os.Getenv("SCHEMA_CONFIG"), "Optional JSON file overriding the column candidate lists")
		workers    = flag.Int("export-workers", 2, "Concurrent export job workers")
	)
	flag.Parse()

	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("GCP project is required (--project or GCP_PROJECT)")
	}

	cfg := schema.DefaultConfig()
	if *schemaPath != "" {
		var err error
		cfg, err = schema.LoadFile(*schemaPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *schemaPath).Msg("Failed to load schema config")
		}
		log.Info().Str("path", *schemaPath).Msg("Loaded schema config overrides")
	}

	ctx := context.Background()

	store, err := rowstore.NewBigQueryStore(ctx, *projectID, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	loader := dashboard.NewLoader(store, cfg, log)
	svc := dashboard.NewService(loader, log)

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if *bucket != "" {
		uploader, err := export.NewGCSUploader(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS uploader")
		}
		defer uploader.Close()

		go func() {
			log.Info().Str("bucket", *bucket).Msg("Starting export job worker")
			if err := jobQueue.Start(workerCtx, export.NewJobHandler(loader, uploader, log)); err != nil {
				log.Error().Err(err).Msg("Export job worker stopped with error")
			}
		}()
	} else {
		log.Warn().Msg("No GCS bucket configured - async exports will stay pending")
	}

	router := api.NewRouter(
		handlers.NewDashboardHandler(svc, log),
		handlers.NewExportsHandler(jobQueue, log),
		handlers.NewJobsHandler(jobStore, log),
		log,
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job queue shutdown failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
