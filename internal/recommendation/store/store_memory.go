package store

import (
	"context"
	"sort"
	"sync"

	"carbonledger/internal/recommendation"
)

// InMemoryStore keeps recommendation content in a map keyed by benchmark id.
type InMemoryStore struct {
	mu       sync.RWMutex
	contents map[string]recommendation.Content
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{contents: make(map[string]recommendation.Content)}
}

func (s *InMemoryStore) Get(_ context.Context, benchmarkID string) (*recommendation.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if content, exists := s.contents[benchmarkID]; exists {
		return &content, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Set(_ context.Context, content recommendation.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contents[content.BenchmarkID] = content
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]recommendation.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]recommendation.Content, 0, len(s.contents))
	for _, content := range s.contents {
		out = append(out, content)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BenchmarkID < out[j].BenchmarkID })
	return out, nil
}
