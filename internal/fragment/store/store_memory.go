package store

import (
	"context"
	"sync"

	"carbonledger/internal/fragment"
)

type pageKey struct {
	documentID string
	page       int
}

// InMemoryStore keeps fragments in per-page slices. Append-only.
type InMemoryStore struct {
	mu    sync.RWMutex
	pages map[pageKey][]fragment.Fragment
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{pages: make(map[pageKey][]fragment.Fragment)}
}

func (s *InMemoryStore) Append(_ context.Context, fragments []fragment.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range fragments {
		key := pageKey{documentID: f.DocumentID, page: f.PageNumber}
		s.pages[key] = append(s.pages[key], f)
	}
	return nil
}

func (s *InMemoryStore) ListPage(_ context.Context, documentID string, page int) ([]fragment.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.pages[pageKey{documentID: documentID, page: page}]
	if !exists {
		return []fragment.Fragment{}, nil
	}
	out := make([]fragment.Fragment, len(stored))
	copy(out, stored)
	return out, nil
}

// Count is a test helper.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, fragments := range s.pages {
		total += len(fragments)
	}
	return total
}
