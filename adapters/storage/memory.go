package storage

import (
	"context"
	"sort"
	"sync"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// MemoryStore is an in-memory storage backend
type MemoryStore struct {
	results map[string]*types.Calculation
	mu      sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]*types.Calculation),
	}
}

func (s *MemoryStore) Save(ctx context.Context, calc *types.Calculation) error {
	if calc == nil || calc.ID == "" {
		return errors.Validation("id", "calculation must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[calc.ID]; ok {
		return errors.Validation("id", "calculation already stored: "+calc.ID)
	}
	stored := *calc
	s.results[calc.ID] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calc, ok := s.results[id]
	if !ok {
		return nil, errors.NotFound("calculation", id)
	}
	out := *calc
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*types.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*types.Calculation{}
	for _, calc := range s.results {
		if filter.matches(calc) {
			out := *calc
			results = append(results, &out)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(results) {
				return []*types.Calculation{}, nil
			}
			results = results[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(results) {
			results = results[:filter.Limit]
		}
	}
	return results, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[id]; !ok {
		return errors.NotFound("calculation", id)
	}
	delete(s.results, id)
	return nil
}

func (s *MemoryStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	oldCalc, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newCalc, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compare(oldCalc, newCalc)
}

func (s *MemoryStore) Close() error {
	return nil
}

// Ensure interfaces are implemented
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
