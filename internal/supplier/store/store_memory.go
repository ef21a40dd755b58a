package store

import (
	"context"
	"sort"
	"sync"

	"carbonledger/internal/supplier"
)

// InMemoryStore keeps benchmarks in a map keyed by benchmark id.
type InMemoryStore struct {
	mu         sync.RWMutex
	benchmarks map[string]supplier.Benchmark
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{benchmarks: make(map[string]supplier.Benchmark)}
}

func (s *InMemoryStore) Upsert(_ context.Context, benchmarks []supplier.Benchmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range benchmarks {
		s.benchmarks[b.ID] = b
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*supplier.Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, exists := s.benchmarks[id]; exists {
		return &b, nil
	}
	return nil, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]supplier.Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]supplier.Benchmark, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpstreamImpactPct != out[j].UpstreamImpactPct {
			return out[i].UpstreamImpactPct > out[j].UpstreamImpactPct
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
