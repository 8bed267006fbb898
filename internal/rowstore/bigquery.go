package rowstore

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// BigQueryStore implements Store on top of a BigQuery dataset. It holds a
// shared client to avoid creating a new connection for each operation; the
// owner constructs it once at startup and calls Close on shutdown.
type BigQueryStore struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryStore creates a store backed by the given project and dataset.
func NewBigQueryStore(ctx context.Context, projectID, dataset string) (*BigQueryStore, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryStore: creating client: %w", err)
	}
	return &BigQueryStore{client: client, dataset: dataset}, nil
}

// Close closes the underlying BigQuery client.
func (s *BigQueryStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// FetchTable implements Store. All columns are selected because the schema
// is not known ahead of time; the resolver decides which ones matter.
func (s *BigQueryStore) FetchTable(ctx context.Context, table string) ([]Row, error) {
	q := s.client.Query(fmt.Sprintf("SELECT * FROM `%s.%s`", s.dataset, table))
	return s.readRows(ctx, q, "FetchTable")
}

// FetchWhereIn implements Store using a server-side IN UNNEST filter.
// BigQuery rejects the query when the column does not exist, which is the
// signal the loader uses to fall back to client-side filtering.
func (s *BigQueryStore) FetchWhereIn(ctx context.Context, table, column string, values []string) ([]Row, error) {
	q := s.client.Query(fmt.Sprintf(
		"SELECT * FROM `%s.%s` WHERE CAST(`%s` AS STRING) IN UNNEST(@values)",
		s.dataset, table, column))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "values", Value: values},
	}
	return s.readRows(ctx, q, "FetchWhereIn")
}

func (s *BigQueryStore) readRows(ctx context.Context, q *bigquery.Query, op string) ([]Row, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var rows []Row
	for {
		var vals map[string]bigquery.Value
		err := it.Next(&vals)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		row := make(Row, len(vals))
		for k, v := range vals {
			row[k] = nativeValue(v)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// nativeValue maps BigQuery value types onto the plain Go values the
// normalizer understands. NUMERIC comes back as *big.Rat and calendar
// types as civil values; both are flattened here so the rest of the
// system never imports BigQuery types.
func nativeValue(v bigquery.Value) any {
	switch val := v.(type) {
	case *big.Rat:
		if val == nil {
			return nil
		}
		f, _ := val.Float64()
		return f
	case civil.Date:
		return val.String()
	case civil.DateTime:
		return val.String()
	case civil.Time:
		return val.String()
	case time.Time:
		return val.UTC()
	default:
		return val
	}
}
