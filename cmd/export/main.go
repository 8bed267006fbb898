package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"revdash/internal/dashboard"
	"revdash/internal/export"
	"revdash/internal/logger"
	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

// One-shot exporter: runs a load cycle for a date range and writes the
// three CSV documents to a local directory, optionally uploading them to
// GCS as well.
func main() {
	_ = godotenv.Load()

	var (
		startStr   = flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
		endStr     = flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
		outDir     = flag.String("out", ".", "Directory to write the CSV files to")
		bucket     = flag.String("bucket", os.Getenv("GCS_BUCKET"), "Optional GCS bucket to upload the files to")
		prefix     = flag.String("prefix", "", "Object name prefix for GCS uploads")
		projectID  = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT)")
		dataset    = flag.String("dataset", envOr("BQ_DATASET", "revenue"), "BigQuery dataset holding the raw tables")
		schemaPath = flag.String("schema-config", os.Getenv("SCHEMA_CONFIG"), "Optional JSON file overriding the column candidate lists")
	)
	flag.Parse()

	log := logger.New()

	if *startStr == "" || *endStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: GCP project is required (--project or GCP_PROJECT)")
	}

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		log.Fatal().Msg("Error: end-date must be after start-date")
	}

	cfg := schema.DefaultConfig()
	if *schemaPath != "" {
		cfg, err = schema.LoadFile(*schemaPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *schemaPath).Msg("Failed to load schema config")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := rowstore.NewBigQueryStore(ctx, *projectID, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	loader := dashboard.NewLoader(store, cfg, log)

	log.Info().
		Str("start_date", *startStr).
		Str("end_date", *endStr).
		Msg("Loading transactions")

	txs, err := loader.Load(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Load cycle failed")
	}
	log.Info().Int("transactions", len(txs)).Msg("Load cycle complete")

	snap := &dashboard.Snapshot{
		Start:        start,
		End:          end,
		Transactions: txs,
		Aggregates:   dashboard.Aggregate(txs),
		LoadedAt:     time.Now().UTC(),
	}

	var uploader *export.GCSUploader
	if *bucket != "" {
		uploader, err = export.NewGCSUploader(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS uploader")
		}
		defer uploader.Close()
	}

	for _, doc := range []export.Document{export.DocTransactions, export.DocProducts, export.DocSummary} {
		data, err := export.Render(doc, snap)
		if err != nil {
			log.Fatal().Err(err).Str("document", string(doc)).Msg("Failed to render document")
		}

		path := filepath.Join(*outDir, doc.Filename())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to write file")
		}
		log.Info().Str("path", path).Int("bytes", len(data)).Msg("Wrote document")

		if uploader != nil {
			object := doc.Filename()
			if *prefix != "" {
				object = *prefix + "/" + object
			}
			uri, err := uploader.Upload(ctx, object, data)
			if err != nil {
				log.Fatal().Err(err).Str("object", object).Msg("Upload failed")
			}
			log.Info().Str("uri", uri).Msg("Uploaded document")
		}
	}

	fmt.Println("Export completed successfully.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
