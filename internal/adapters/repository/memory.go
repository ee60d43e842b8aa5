package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/pkg/metrics"
)

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.AnalysisRecord
	byOwner map[string][]string // ids in insertion order
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.AnalysisRecord),
		byOwner: make(map[string][]string),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec model.AnalysisRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidRecord, rec.ID)
	}
	s.records[rec.ID] = rec
	s.byOwner[rec.OwnerID] = append(s.byOwner[rec.OwnerID], rec.ID)
	metrics.UpdateStoredRecords(len(s.records))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, owner, id string) (model.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.OwnerID != owner {
		metrics.RecordError("repository", "not_found")
		return model.AnalysisRecord{}, ErrNotFound
	}
	return rec, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, owner string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	ids := s.byOwner[owner]
	out := make([]model.AnalysisRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, owner, id string) (model.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.OwnerID != owner {
		return model.AnalysisRecord{}, ErrNotFound
	}
	delete(s.records, id)
	ids := s.byOwner[owner]
	for i, x := range ids {
		if x == id {
			s.byOwner[owner] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byOwner[owner]) == 0 {
		delete(s.byOwner, owner)
	}
	metrics.UpdateStoredRecords(len(s.records))
	return rec, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
