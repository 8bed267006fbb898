package schema

import "revdash/internal/rowstore"

// Resolve returns the first candidate column name present as a key in the
// sample row. The boolean is false when no candidate matches; callers then
// default the field per the normalization rules instead of failing.
//
// Resolution is meant to run once per table fetch against a representative
// sample row, not per row. The transactions and payments tables routinely
// have different column sets, so a fresh resolution is required for each
// table. If the sample row happens to lack a column that later rows carry,
// that column is treated as absent for the whole batch; sparse leading
// rows can therefore hide a field (known limitation of sampling row zero).
func Resolve(sample rowstore.Row, candidates []string) (string, bool) {
	for _, name := range candidates {
		if _, ok := sample[name]; ok {
			return name, true
		}
	}
	return "", false
}

// ResolveValue resolves the column against the row itself and returns its
// value. Used where a per-row lookup is wanted, such as collecting
// transaction identifiers from rows that may not all share a shape.
func ResolveValue(row rowstore.Row, candidates []string) (any, bool) {
	for _, name := range candidates {
		if v, ok := row[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
