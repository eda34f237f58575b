// Package memstore implements the entity store in process memory.
// It is the default backend when Supabase is not configured, and the
// backend the tests run against. Records and the id index mutate under
// a single lock, so index and records can never diverge here.
package memstore

import (
	"context"
	"sync"

	"github.com/boddenberg/villa-finans-go/internal/domain"
)

// Store is an in-memory entity store for one kind. The index keeps
// insertion order, which is the storage order listings report.
type Store[T domain.Entity] struct {
	kind string

	mu      sync.RWMutex
	records map[string]T
	index   []string
}

// New creates an empty store for the given entity kind.
func New[T domain.Entity](kind string) *Store[T] {
	return &Store[T]{
		kind:    kind,
		records: make(map[string]T),
	}
}

// Create assigns the record under its id and appends the id to the index.
func (s *Store[T]) Create(ctx context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.EntityID()
	if _, ok := s.records[id]; !ok {
		s.index = append(s.index, id)
	}
	s.records[id] = rec
	return nil
}

// Save overwrites an existing record in place.
func (s *Store[T]) Save(ctx context.Context, id string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return &domain.ErrNotFound{Resource: s.kind, ID: id}
	}
	s.records[id] = rec
	return nil
}

// Exists reports whether a record with the given id is present.
func (s *Store[T]) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[id]
	return ok, nil
}

// Delete removes the record and its index entry. Deleting an unknown
// id reports false with no error.
func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	for i, v := range s.index {
		if v == id {
			s.index = append(s.index[:i], s.index[i+1:]...)
			break
		}
	}
	return true, nil
}

// List returns all records in storage order.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.index))
	for _, id := range s.index {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Categories is the category store plus the one-time default seed.
type Categories struct {
	*Store[domain.Category]
}

// NewCategories creates an empty in-memory category store.
func NewCategories() *Categories {
	return &Categories{Store: New[domain.Category]("category")}
}

// EnsureSeed populates the fixed default category set if none exist
// yet. Safe to call repeatedly; it only writes into an empty store.
// The bool reports whether this call wrote the seed.
func (c *Categories) EnsureSeed(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.index) > 0 {
		return false, nil
	}
	for _, cat := range domain.SeedCategories {
		c.records[cat.ID] = cat
		c.index = append(c.index, cat.ID)
	}
	return true, nil
}
