package anomaly

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps anomaly records and scan history in maps.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	scans   []ScanRun
}

func NewMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, record Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.records[record.ID]
	if !exists {
		s.records[record.ID] = record
		return true, nil
	}

	// The update set is message/fix_hint/details/updated_at only. Severity is
	// fixed at creation, like status and resolution_note.
	if existing.Message == record.Message &&
		existing.FixHint == record.FixHint &&
		maps.Equal(existing.Details, record.Details) {
		return false, nil
	}

	existing.Message = record.Message
	existing.FixHint = record.FixHint
	existing.Details = record.Details
	existing.UpdatedAt = record.UpdatedAt
	s.records[record.ID] = existing
	return true, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.records[id]; exists {
		return &record, nil
	}
	return nil, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, record := range s.records {
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && record.Severity != filter.Severity {
			continue
		}
		out = append(out, record)
	}
	sortRecords(out)
	return out, nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, id string, status Status, note string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[id]
	if !exists {
		return nil, nil
	}
	record.Status = status
	record.ResolutionNote = note
	record.UpdatedAt = time.Now().UTC()
	s.records[id] = record
	return &record, nil
}

func (s *InMemoryStore) RecordScan(_ context.Context, run ScanRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans = append(s.scans, run)
	return nil
}

func (s *InMemoryStore) LastScan(_ context.Context) (*ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.scans) == 0 {
		return nil, nil
	}
	last := s.scans[len(s.scans)-1]
	return &last, nil
}

// sortRecords orders by severity (high first), then newest first, then id so
// listings are deterministic.
func sortRecords(records []Record) {
	rank := map[Severity]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}
	sort.Slice(records, func(i, j int) bool {
		if rank[records[i].Severity] != rank[records[j].Severity] {
			return rank[records[i].Severity] < rank[records[j].Severity]
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
