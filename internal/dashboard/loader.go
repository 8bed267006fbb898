package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

// Loader orchestrates one load cycle: fetch raw transaction rows, filter
// them to a date range, enrich them from the payments table, and hand the
// result to the normalizer. It holds no per-cycle state; every Load call
// is independent.
type Loader struct {
	store rowstore.Store
	cfg   *schema.Config
	log   zerolog.Logger
}

// NewLoader creates a loader over the given row store and schema config.
func NewLoader(store rowstore.Store, cfg *schema.Config, log zerolog.Logger) *Loader {
	return &Loader{store: store, cfg: cfg, log: log}
}

// Load fetches and normalizes all transactions within [start, end],
// inclusive on both ends by calendar day (UTC). It returns
// ErrSourceUnavailable when every candidate transaction table errors;
// enrichment failures degrade silently to un-enriched rows.
func (l *Loader) Load(ctx context.Context, start, end time.Time) ([]Transaction, error) {
	rows, table, err := l.fetchTransactions(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	filtered := l.filterByDate(rows, table, start, end)

	ids := l.collectIDs(filtered)
	if len(ids) > 0 {
		if payments := l.fetchPayments(ctx, ids); len(payments) > 0 {
			l.enrich(filtered, payments)
		}
	}

	txs := make([]Transaction, 0, len(filtered))
	for _, row := range filtered {
		txs = append(txs, Normalize(row, l.cfg))
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	return txs, nil
}

// fetchTransactions tries each candidate transaction table in priority
// order and returns the first that answers without error.
func (l *Loader) fetchTransactions(ctx context.Context) ([]rowstore.Row, string, error) {
	var lastErr error
	for _, table := range l.cfg.TransactionTables {
		rows, err := l.store.FetchTable(ctx, table)
		if err != nil {
			l.log.Debug().Err(err).Str("table", table).Msg("transaction table candidate failed")
			lastErr = err
			continue
		}
		return rows, table, nil
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("Load: %w: last candidate error: %v", ErrSourceUnavailable, lastErr)
	}
	return nil, "", fmt.Errorf("Load: %w", ErrSourceUnavailable)
}

// filterByDate keeps the rows whose resolved date falls within the range.
// The date column is resolved once against the first row; when no
// candidate resolves the filter fails open and every row passes. Rows with
// unparsable date values are excluded.
func (l *Loader) filterByDate(rows []rowstore.Row, table string, start, end time.Time) []rowstore.Row {
	dateCol, ok := schema.Resolve(rows[0], l.cfg.DateColumns)
	if !ok {
		l.log.Warn().Str("table", table).Msg("no date column resolved; treating all rows as in range")
		return rows
	}

	startDay := truncateDay(start)
	endDay := truncateDay(end)

	var out []rowstore.Row
	for _, row := range rows {
		d, ok := ParseDate(row[dateCol])
		if !ok {
			continue
		}
		day := truncateDay(d)
		if day.Before(startDay) || day.After(endDay) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// collectIDs gathers the distinct transaction identifier values of the
// filtered rows. Identifiers are resolved per row rather than from a
// sample, since sparse id columns are common in practice.
func (l *Loader) collectIDs(rows []rowstore.Row) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		v, ok := schema.ResolveValue(row, l.cfg.TransactionIDColumns)
		if !ok {
			continue
		}
		id := coerceString(v)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// fetchPayments returns payment rows matching the given transaction ids,
// keyed by id. The first payments table candidate that yields a non-error
// result wins; an empty result just means no enrichment. For each table a
// server-side in-set query with a guessed id column is tried first, then a
// full fetch with client-side filtering.
func (l *Loader) fetchPayments(ctx context.Context, ids []string) map[string]rowstore.Row {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	guessCol := l.cfg.TransactionIDColumns[0]

	for _, table := range l.cfg.PaymentTables {
		rows, err := l.store.FetchWhereIn(ctx, table, guessCol, ids)
		if err != nil {
			l.log.Debug().Err(err).Str("table", table).Msg("in-set payments query failed; fetching full table")
			rows, err = l.store.FetchTable(ctx, table)
			if err != nil {
				l.log.Debug().Err(err).Str("table", table).Msg("payments table candidate failed")
				continue
			}
		}

		byID := make(map[string]rowstore.Row)
		for _, row := range rows {
			v, ok := schema.ResolveValue(row, l.cfg.TransactionIDColumns)
			if !ok {
				continue
			}
			id := coerceString(v)
			if !idSet[id] {
				continue
			}
			if _, dup := byID[id]; !dup {
				byID[id] = row
			}
		}
		return byID
	}

	l.log.Warn().Msg("no payments table answered; continuing without enrichment")
	return nil
}

// enrich fills a fixed set of business fields from the matching payment
// row, only where the transaction row has no value of its own. Payment
// data never overrides a present transaction value.
func (l *Loader) enrich(rows []rowstore.Row, payments map[string]rowstore.Row) {
	fieldChains := [][]string{
		l.cfg.ProductNameColumns,
		l.cfg.ProductTypeColumns,
		l.cfg.AmountColumns,
		l.cfg.TotalPriceColumns,
		l.cfg.UnitPriceColumns,
		l.cfg.CustomerIDColumns,
		l.cfg.EmailColumns,
		l.cfg.CustomerNameColumns,
		l.cfg.SourceColumns,
		l.cfg.FunnelColumns,
		l.cfg.DateColumns,
		l.cfg.PlanNameColumns,
	}

	enriched := 0
	for _, row := range rows {
		v, ok := schema.ResolveValue(row, l.cfg.TransactionIDColumns)
		if !ok {
			continue
		}
		payment, ok := payments[coerceString(v)]
		if !ok {
			continue
		}

		touched := false
		for _, chain := range fieldChains {
			if hasAny(row, chain) {
				continue
			}
			for _, name := range chain {
				if payment.Has(name) {
					row[name] = payment[name]
					touched = true
					break
				}
			}
		}
		if touched {
			enriched++
		}
	}

	l.log.Debug().Int("rows", enriched).Msg("payment enrichment applied")
}

func hasAny(row rowstore.Row, candidates []string) bool {
	for _, name := range candidates {
		if row.Has(name) {
			return true
		}
	}
	return false
}
