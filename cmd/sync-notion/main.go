package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"revdash/internal/dashboard"
	"revdash/internal/logger"
	"revdash/internal/notionsync"
	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

// Pushes the product summaries for a date range into a Notion database.
func main() {
	_ = godotenv.Load()

	log := logger.New()

	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", os.Getenv("NOTION_DB_ID"), "Notion database ID (or set NOTION_DB_ID)")
	projectID := flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT)")
	dataset := flag.String("dataset", envOr("BQ_DATASET", "revenue"), "BigQuery dataset holding the raw tables")
	schemaPath := flag.String("schema-config", os.Getenv("SCHEMA_CONFIG"), "Optional JSON file overriding the column candidate lists")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *endDateStr == "" {
		log.Fatal().Msg("Error: --end-date is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: GCP project is required (--project or GCP_PROJECT)")
	}

	startDate, err := time.Parse("2006-01-02", *startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", *endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must be after start-date")
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

	log.Info().
		Str("start_date", *startDateStr).
		Str("end_date", *endDateStr).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	store, err := rowstore.NewBigQueryStore(ctx, *projectID, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	loader := dashboard.NewLoader(store, cfg, log)
	txs, err := loader.Load(ctx, startDate, endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Load cycle failed")
	}

	agg := dashboard.Aggregate(txs)
	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncProducts(ctx, notionClient, *notionDBID, agg.Products, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
