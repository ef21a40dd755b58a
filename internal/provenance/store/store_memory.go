package store

import (
	"context"
	"sort"
	"sync"

	"carbonledger/internal/provenance"
)

// InMemoryStore keeps provenance records in a map keyed by id.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]provenance.Record
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]provenance.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, record provenance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*provenance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.records[id]; exists {
		return &record, nil
	}
	return nil, nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityType, entityID string) ([]provenance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []provenance.Record{}
	for _, record := range s.records {
		if record.EntityType == entityType && record.EntityID == entityID {
			out = append(out, record)
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]provenance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]provenance.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sortRecords(out)
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// sortRecords orders newest first, with id as a stable tie-break so listings
// are deterministic under equal timestamps.
func sortRecords(records []provenance.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
