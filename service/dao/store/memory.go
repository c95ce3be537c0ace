// Package store provides a generic keyed in-memory dao.Service used by the
// smaller runtime tables.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/jobgate/service/dao"
)

// Memory keeps entities of type *T mapped by a comparable key K obtained
// with keySelector.
type Memory[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
}

var _ dao.Service[string, struct{}] = (*Memory[string, struct{}])(nil)

// NewMemory creates a store
func NewMemory[K comparable, T any](keySelector func(*T) K) *Memory[K, T] {
	return &Memory[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// Save stores or overwrites a record
func (s *Memory[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = v
	return nil
}

// Load returns a record by key, dao.ErrNotFound if missing
func (s *Memory[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	return v, nil
}

// Delete removes a record, dao.ErrNotFound if missing
func (s *Memory[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	delete(s.records, key)
	return nil
}

// List returns all stored records in no particular order
func (s *Memory[K, T]) List(_ context.Context, _ ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		out = append(out, v)
	}
	return out, nil
}

// Drain removes and returns every record
func (s *Memory[K, T]) Drain() []*T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		out = append(out, v)
	}
	s.records = make(map[K]*T)
	return out
}

// Len returns number of records
func (s *Memory[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
