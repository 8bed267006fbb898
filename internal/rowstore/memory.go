package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Tables are plain row slices; errors can be injected per table to
// exercise the loader's candidate-table fallback.
type MemoryStore struct {
	mu         sync.RWMutex
	tables     map[string][]Row
	tableErrs  map[string]error
	whereInErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:    make(map[string][]Row),
		tableErrs: make(map[string]error),
	}
}

// AddTable registers a table with the given rows, replacing any previous
// contents.
func (s *MemoryStore) AddTable(name string, rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = rows
}

// FailTable makes every fetch of the named table return err.
func (s *MemoryStore) FailTable(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableErrs[name] = err
}

// FailWhereIn makes every FetchWhereIn call return err, regardless of
// table. Used to exercise the client-side filtering fallback.
func (s *MemoryStore) FailWhereIn(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whereInErr = err
}

// FetchTable implements Store.
func (s *MemoryStore) FetchTable(ctx context.Context, table string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.tableErrs[table]; err != nil {
		return nil, err
	}
	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("FetchTable: table %q not found", table)
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}

// FetchWhereIn implements Store. Like the server-side variant, it fails
// when the column is absent from the table instead of returning an empty
// result.
func (s *MemoryStore) FetchWhereIn(ctx context.Context, table, column string, values []string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.whereInErr != nil {
		return nil, s.whereInErr
	}
	if err := s.tableErrs[table]; err != nil {
		return nil, err
	}
	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("FetchWhereIn: table %q not found", table)
	}

	if len(rows) > 0 {
		if _, ok := rows[0][column]; !ok {
			return nil, fmt.Errorf("FetchWhereIn: column %q not found in table %q", column, table)
		}
	}

	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}

	var out []Row
	for _, row := range rows {
		if v, ok := row[column]; ok && wanted[fmt.Sprint(v)] {
			out = append(out, row)
		}
	}
	return out, nil
}
