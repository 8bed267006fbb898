package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

// gatedStore hands out transaction rows only when the test releases the
// corresponding call, so overlapping refresh cycles can be resolved in a
// chosen order.
type gatedStore struct {
	calls   atomic.Int64
	started chan int64
	release map[int64]chan []rowstore.Row
}

func newGatedStore(n int64) *gatedStore {
	g := &gatedStore{
		started: make(chan int64, n),
		release: make(map[int64]chan []rowstore.Row, n),
	}
	for i := int64(1); i <= n; i++ {
		g.release[i] = make(chan []rowstore.Row, 1)
	}
	return g
}

func (g *gatedStore) FetchTable(ctx context.Context, table string) ([]rowstore.Row, error) {
	i := g.calls.Add(1)
	g.started <- i
	return <-g.release[i], nil
}

func (g *gatedStore) FetchWhereIn(ctx context.Context, table, column string, values []string) ([]rowstore.Row, error) {
	return nil, errors.New("not supported")
}

func rowsWithCount(n int) []rowstore.Row {
	rows := make([]rowstore.Row, n)
	for i := range rows {
		rows[i] = rowstore.Row{"date": "2024-12-05", "product_name": "Lab", "amount": float64(100)}
	}
	return rows
}

func newTestService(store rowstore.Store) *Service {
	loader := NewLoader(store, schema.DefaultConfig(), zerolog.Nop())
	return NewService(loader, zerolog.Nop())
}

func TestServiceRefreshInstallsSnapshot(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.AddTable("transaction", rowsWithCount(3))
	svc := newTestService(store)

	snap, err := svc.Refresh(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(snap.Transactions) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(snap.Transactions))
	}
	if svc.Current() != snap {
		t.Error("refresh did not install its snapshot")
	}
}

func TestServiceRefreshErrorStillInstalls(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.FailTable("transaction", errors.New("down"))
	store.FailTable("transactions", errors.New("down"))
	svc := newTestService(store)

	_, err := svc.Refresh(context.Background(), rangeStart, rangeEnd)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}

	cur := svc.Current()
	if cur.Error == "" {
		t.Error("error snapshot was not installed")
	}
	if cur.Aggregates == nil || cur.Aggregates.Global.MTDRevenue != 0 || len(cur.Aggregates.Products) != 0 {
		t.Errorf("error snapshot should carry empty aggregates: %+v", cur.Aggregates)
	}
}

func TestServiceStaleCycleDiscarded(t *testing.T) {
	store := newGatedStore(2)
	svc := newTestService(store)

	type result struct{ snap *Snapshot }
	done := make(chan result, 2)
	refresh := func() {
		snap, _ := svc.Refresh(context.Background(), rangeStart, rangeEnd)
		done <- result{snap}
	}

	go refresh() // cycle A
	<-store.started
	go refresh() // cycle B, requested after A
	<-store.started

	// B resolves first and gets installed.
	store.release[2] <- rowsWithCount(2)
	b := <-done
	if got := len(svc.Current().Transactions); got != 2 {
		t.Fatalf("expected cycle B installed with 2 transactions, got %d", got)
	}

	// A resolves late; it must not replace B's snapshot.
	store.release[1] <- rowsWithCount(1)
	a := <-done

	if got := len(svc.Current().Transactions); got != 2 {
		t.Errorf("stale cycle replaced the newer snapshot, got %d transactions", got)
	}
	if svc.Current() != b.snap {
		t.Error("installed snapshot is not cycle B's")
	}
	if len(a.snap.Transactions) != 1 {
		t.Errorf("stale cycle should still return its own result, got %d transactions", len(a.snap.Transactions))
	}
}

func TestServiceSequentialRefreshesAdvance(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.AddTable("transaction", rowsWithCount(1))
	svc := newTestService(store)

	if _, err := svc.Refresh(context.Background(), rangeStart, rangeEnd); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	store.AddTable("transaction", rowsWithCount(4))
	if _, err := svc.Refresh(context.Background(), rangeStart, rangeEnd); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}

	if got := len(svc.Current().Transactions); got != 4 {
		t.Errorf("second refresh did not advance the snapshot, got %d transactions", got)
	}
}

func TestServiceDaily(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.AddTable("transaction", []rowstore.Row{
		{"date": "2024-12-05", "product_name": "Lab", "amount": float64(100)},
		{"date": "2024-12-05", "product_name": "Other", "amount": float64(50)},
		{"date": "2024-12-06", "product_name": "Lab", "amount": float64(25)},
	})
	svc := newTestService(store)

	snap, err := svc.Refresh(context.Background(), rangeStart, rangeEnd)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	points := svc.Daily(snap, "Lab")
	if len(points) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(points))
	}
	if points[0].Revenue != 100 || points[1].Revenue != 25 {
		t.Errorf("unexpected daily revenue: %+v", points)
	}
}
