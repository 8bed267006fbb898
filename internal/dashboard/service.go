package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is the result of one load cycle. All derived entities are owned
// by the cycle that produced them; a new refresh replaces the snapshot
// wholesale, nothing is updated in place.
type Snapshot struct {
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Transactions []Transaction `json:"transactions"`
	Aggregates   *Aggregates   `json:"aggregates"`
	LoadedAt     time.Time     `json:"loaded_at"`
	Error        string        `json:"error,omitempty"`

	generation uint64
}

// Service owns the loader and the current snapshot. Concurrent refreshes
// are resolved with a generation token: the snapshot only ever moves
// forward, so a slow older cycle that finishes after a newer one cannot
// clobber the newer result (last-requested-wins, not last-resolved-wins).
type Service struct {
	loader *Loader
	log    zerolog.Logger

	gen atomic.Uint64

	mu      sync.RWMutex
	current *Snapshot
}

// NewService creates a service with an empty initial snapshot.
func NewService(loader *Loader, log zerolog.Logger) *Service {
	return &Service{
		loader:  loader,
		log:     log,
		current: &Snapshot{Aggregates: Aggregate(nil), LoadedAt: time.Now().UTC()},
	}
}

// Refresh runs a load cycle for the date range and installs the resulting
// snapshot unless a newer refresh started in the meantime. It returns the
// cycle's snapshot either way; on a fatal load error the snapshot carries
// empty aggregates and the error is returned.
func (s *Service) Refresh(ctx context.Context, start, end time.Time) (*Snapshot, error) {
	gen := s.gen.Add(1)

	txs, err := s.loader.Load(ctx, start, end)

	snap := &Snapshot{
		Start:        start,
		End:          end,
		Transactions: txs,
		Aggregates:   Aggregate(txs),
		LoadedAt:     time.Now().UTC(),
		generation:   gen,
	}
	if err != nil {
		snap.Error = err.Error()
	}

	s.mu.Lock()
	if gen == s.gen.Load() && snap.generation > s.current.generation {
		s.current = snap
	} else {
		s.log.Debug().
			Uint64("cycle", snap.generation).
			Uint64("current", s.current.generation).
			Msg("discarding stale load cycle")
	}
	s.mu.Unlock()

	return snap, err
}

// Current returns the latest installed snapshot.
func (s *Service) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Daily computes the daily series for a product from the given snapshot.
func (s *Service) Daily(snap *Snapshot, productName string) []DailyPoint {
	return DailySeries(snap.Transactions, productName)
}
