package store

import (
	"context"
	"sort"
	"sync"

	"carbonledger/internal/measure"
)

// InMemoryStore keeps measured values in a slice; listings sort newest first
// with id tie-break.
type InMemoryStore struct {
	mu     sync.RWMutex
	values []measure.MeasuredValue
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Create(_ context.Context, value measure.MeasuredValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, value)
	return nil
}

func (s *InMemoryStore) ListBySupplier(_ context.Context, supplierID string) ([]measure.MeasuredValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []measure.MeasuredValue{}
	for _, v := range s.values {
		if v.SupplierID == supplierID {
			out = append(out, v)
		}
	}
	sortValues(out)
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]measure.MeasuredValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]measure.MeasuredValue, len(s.values))
	copy(out, s.values)
	sortValues(out)
	return out, nil
}

func sortValues(values []measure.MeasuredValue) {
	sort.Slice(values, func(i, j int) bool {
		if !values[i].CreatedAt.Equal(values[j].CreatedAt) {
			return values[i].CreatedAt.After(values[j].CreatedAt)
		}
		return values[i].ID < values[j].ID
	})
}
