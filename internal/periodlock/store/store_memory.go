package store

import (
	"context"
	"sort"
	"sync"

	"carbonledger/internal/periodlock"
)

// InMemoryStore keeps period lock state in a map. Used in tests and when no
// Redis or Postgres backend is configured.
type InMemoryStore struct {
	mu    sync.RWMutex
	locks map[string]periodlock.Lock
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{locks: make(map[string]periodlock.Lock)}
}

func (s *InMemoryStore) Get(_ context.Context, period string) (*periodlock.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if lock, exists := s.locks[period]; exists {
		return &lock, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Set(_ context.Context, lock periodlock.Lock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locks[lock.Period] = lock
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]periodlock.Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]periodlock.Lock, 0, len(s.locks))
	for _, lock := range s.locks {
		out = append(out, lock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}
