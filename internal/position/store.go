// Package position keeps the latest position snapshots supplied by the
// external account collaborator. The engine reads them when seeding
// trailing stops (e.g. defaulting the protected quantity).
package position

import (
	"sync"

	"trading-dashboard/internal/model"
)

// Store holds the most recent snapshot per (symbol, side).
// Safe for concurrent use: the account feed writes, the engine reads.
type Store struct {
	mu        sync.RWMutex
	positions map[string]model.PositionSnapshot // key = "symbol:side"
}

// NewStore creates an empty position store.
func NewStore() *Store {
	return &Store{
		positions: make(map[string]model.PositionSnapshot),
	}
}

// Update replaces the snapshot for the position's exposure.
// A zero-size snapshot removes the entry (position closed).
func (s *Store) Update(p model.PositionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Size == 0 {
		delete(s.positions, p.Key())
		return
	}
	s.positions[p.Key()] = p
}

// Get returns the snapshot for the given exposure.
func (s *Store) Get(symbol string, side model.Side) (model.PositionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[symbol+":"+string(side)]
	return p, ok
}

// List returns all current snapshots.
func (s *Store) List() []model.PositionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PositionSnapshot, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}
