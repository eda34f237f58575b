// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/villa-finans-go/internal/domain"
)

// EntityStore is durable keyed storage for one entity kind, with a
// companion index of known ids per kind. Implemented by the in-memory
// backend and the PostgREST (Supabase) backend.
type EntityStore[T domain.Entity] interface {
	// Create assigns the record under its id and adds the id to the
	// kind's index.
	Create(ctx context.Context, rec T) error

	// Save overwrites an existing record in place. Returns
	// *domain.ErrNotFound if the id is absent.
	Save(ctx context.Context, id string, rec T) error

	// Exists reports whether a record with the given id is present.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes the record and its index entry. The bool reports
	// whether a record was actually present; deleting an unknown id is
	// not an error.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns all records for the kind in index (insertion)
	// order. Domain ordering, when different, is the caller's
	// responsibility.
	List(ctx context.Context) ([]T, error)
}

// CategoryStore stores categories and owns the one-time default seed.
type CategoryStore interface {
	EntityStore[domain.Category]

	// EnsureSeed populates the fixed default category set if, and only
	// if, no categories exist yet. Safe to call repeatedly. The bool
	// reports whether this call actually wrote the seed.
	EnsureSeed(ctx context.Context) (bool, error)
}

// TransactionStore stores transactions.
type TransactionStore interface {
	EntityStore[domain.Transaction]
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
