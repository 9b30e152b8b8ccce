package report

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-process deployments and testing.
// The zero value is ready to use.
type MemStore struct {
	mu      sync.RWMutex
	reports map[string]Report
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		reports: make(map[string]Report),
	}
}

// Save implements [Store.Save].
func (s *MemStore) Save(ctx context.Context, r Report) (Report, error) {
	if r.ID == "" {
		id, err := generateID()
		if err != nil {
			return Report{}, fmt.Errorf("report: generate id: %w", err)
		}
		r.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reports == nil {
		s.reports = make(map[string]Report)
	}

	if _, exists := s.reports[r.ID]; exists {
		return Report{}, ErrDuplicateID
	}

	s.reports[r.ID] = r
	return r, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return r, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		result = append(result, r)
	}
	slices.SortFunc(result, func(a, b Report) int {
		return a.FinishedAt.Compare(b.FinishedAt)
	})
	return result, nil
}
