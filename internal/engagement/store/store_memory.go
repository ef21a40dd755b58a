package store

import (
	"context"
	"sort"
	"sync"

	"carbonledger/internal/engagement"
)

// InMemoryStore keeps engagements in a map keyed by supplier id.
type InMemoryStore struct {
	mu          sync.RWMutex
	engagements map[string]engagement.Engagement
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{engagements: make(map[string]engagement.Engagement)}
}

func (s *InMemoryStore) Get(_ context.Context, supplierID string) (*engagement.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if eng, exists := s.engagements[supplierID]; exists {
		return &eng, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Set(_ context.Context, eng engagement.Engagement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engagements[eng.SupplierID] = eng
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]engagement.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engagement.Engagement, 0, len(s.engagements))
	for _, eng := range s.engagements {
		out = append(out, eng)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out, nil
}
