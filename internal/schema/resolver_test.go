package schema

import (
	"os"
	"testing"

	"revdash/internal/rowstore"
)

func TestResolve(t *testing.T) {
	sample := rowstore.Row{
		"transaction_id": "tx-1",
		"created_at":     "2024-12-01",
		"amount":         float64(100),
	}

	tests := []struct {
		name       string
		candidates []string
		want       string
		wantOK     bool
	}{
		{
			name:       "first candidate wins",
			candidates: []string{"transaction_id", "id"},
			want:       "transaction_id",
			wantOK:     true,
		},
		{
			name:       "later candidate matches",
			candidates: []string{"date", "created_at", "timestamp"},
			want:       "created_at",
			wantOK:     true,
		},
		{
			name:       "priority order respected over row order",
			candidates: []string{"created_at", "transaction_id"},
			want:       "created_at",
			wantOK:     true,
		},
		{
			name:       "no candidate present",
			candidates: []string{"product_name", "name"},
			want:       "",
			wantOK:     false,
		},
		{
			name:       "empty candidate list",
			candidates: nil,
			want:       "",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(sample, tt.candidates)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveValue(t *testing.T) {
	row := rowstore.Row{
		"txId":  "tx-9",
		"other": nil,
	}

	if v, ok := ResolveValue(row, []string{"transaction_id", "txId"}); !ok || v != "tx-9" {
		t.Errorf("ResolveValue() = (%v, %v), want (tx-9, true)", v, ok)
	}

	// nil values count as absent
	if _, ok := ResolveValue(row, []string{"other"}); ok {
		t.Error("ResolveValue() matched a nil value")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.TransactionTables) == 0 || len(cfg.PaymentTables) == 0 {
		t.Fatal("expected default table candidate lists to be populated")
	}
	if cfg.TransactionIDColumns[0] != "TransactionID" {
		t.Errorf("expected TransactionID first in id candidates, got %q", cfg.TransactionIDColumns[0])
	}
	if cfg.DateColumns[0] != "date" {
		t.Errorf("expected date first in date candidates, got %q", cfg.DateColumns[0])
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := t.TempDir() + "/schema.json"
	contents := `{"transaction_tables": ["orders"], "date_columns": ["purchased_at"]}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(cfg.TransactionTables) != 1 || cfg.TransactionTables[0] != "orders" {
		t.Errorf("transaction tables not overridden: %v", cfg.TransactionTables)
	}
	if len(cfg.DateColumns) != 1 || cfg.DateColumns[0] != "purchased_at" {
		t.Errorf("date columns not overridden: %v", cfg.DateColumns)
	}
	// Untouched lists keep their defaults.
	if len(cfg.AmountColumns) == 0 {
		t.Error("amount columns should keep defaults when not overridden")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/schema.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
