package dashboard

import "errors"

// ErrSourceUnavailable means every candidate transaction table errored.
// It is fatal for the load cycle; the caller surfaces it once and falls
// back to empty aggregates. Enrichment and per-row failures never produce
// this error.
var ErrSourceUnavailable = errors.New("no transaction source available")
