package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"revdash/internal/dashboard"
	"revdash/internal/logger"
)

// SyncProducts mirrors the product summaries into a Notion database. Pages
// are keyed by the Product title plus the Type select: existing pages are
// updated in place, missing ones created, and pages whose key no longer
// appears in the summaries are archived. With dryRun set, the planned
// operations are logged but nothing is written.
func SyncProducts(ctx context.Context, client NotionService, databaseID string, products []dashboard.ProductSummary, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("products", len(products)).
		Bool("dry_run", dryRun).
		Msg("Starting product summary sync to Notion")

	pages, err := queryAllPages(ctx, client, databaseID)
	if err != nil {
		return fmt.Errorf("SyncProducts: %w", err)
	}
	log.Info().Int("pages", len(pages)).Msg("Retrieved existing Notion pages")

	type key struct{ name, typ string }
	existing := make(map[key]notionapi.Page, len(pages))
	for _, page := range pages {
		name, typ := extractProductKey(page)
		if name == "" {
			continue
		}
		existing[key{name, typ}] = page
	}

	valid := make(map[key]bool, len(products))
	syncedAt := time.Now().UTC()

	var created, updated int
	for _, p := range products {
		k := key{p.Name, string(p.Type)}
		valid[k] = true
		props := ProductToNotionProperties(p, syncedAt)

		if page, ok := existing[k]; ok {
			if dryRun {
				log.Info().Str("product", p.Name).Str("type", string(p.Type)).Msg("[DRY RUN] Would update page")
			} else if _, err := client.UpdatePage(ctx, string(page.ID), props); err != nil {
				log.Warn().Err(err).Str("product", p.Name).Msg("Failed to update Notion page")
				continue
			}
			updated++
			continue
		}

		if dryRun {
			log.Info().Str("product", p.Name).Str("type", string(p.Type)).Msg("[DRY RUN] Would create page")
		} else if _, err := client.CreatePage(ctx, databaseID, props); err != nil {
			log.Warn().Err(err).Str("product", p.Name).Msg("Failed to create Notion page")
			continue
		}
		created++
	}

	var archived int
	for k, page := range existing {
		if valid[k] {
			continue
		}
		if dryRun {
			log.Info().Str("product", k.name).Str("type", k.typ).Msg("[DRY RUN] Would archive stale page")
		} else if err := client.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("product", k.name).Msg("Failed to archive stale Notion page")
			continue
		}
		archived++
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("archived", archived).
		Msg("Product summary sync complete")
	return nil
}

// queryAllPages queries all pages from a Notion database, following
// pagination cursors.
func queryAllPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
