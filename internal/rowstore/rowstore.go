package rowstore

import "context"

// Row is one raw row fetched from a remote table. The shape is unknown at
// compile time: column names differ between source tables and deployments,
// so every lookup goes through the schema resolver's candidate lists.
type Row map[string]any

// Has reports whether the row carries a non-empty value for the column.
// Empty strings and nils count as absent, matching the enrichment rule
// that payment data only fills holes in a transaction row.
func (r Row) Has(column string) bool {
	v, ok := r[column]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

// Store is the boundary to the remote row store. Implementations fetch
// whole tables by name; no schema is assumed.
type Store interface {
	// FetchTable returns every row of the named table.
	FetchTable(ctx context.Context, table string) ([]Row, error)

	// FetchWhereIn returns the rows of the named table whose column value
	// is in the given set. It returns an error when the column does not
	// exist server-side; callers are expected to fall back to FetchTable
	// with client-side filtering.
	FetchWhereIn(ctx context.Context, table, column string, values []string) ([]Row, error)
}
