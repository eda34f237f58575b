package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	recordsTable = "entity_records"
	indexTable   = "entity_index"
)

// recordRow maps an entity_records row; the entity itself lives in the
// doc jsonb column.
type recordRow struct {
	Kind string          `json:"kind"`
	ID   string          `json:"id"`
	Doc  json.RawMessage `json:"doc"`
}

// indexRow maps an entity_index row. Pos is a bigserial that preserves
// creation order, which listings report as storage order.
type indexRow struct {
	ID string `json:"id"`
}

// Store is a PostgREST-backed entity store for one kind.
type Store[T domain.Entity] struct {
	c        *Client
	kind     string
	bulkhead *resilience.Bulkhead
}

// NewStore creates a store for the given entity kind. maxConcurrency
// bounds the parallel member fetches of List.
func NewStore[T domain.Entity](c *Client, kind string, maxConcurrency int) *Store[T] {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Store[T]{
		c:        c,
		kind:     kind,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
	}
}

// Create writes the record row, then the index row. The two writes are
// not atomic: a crash in between leaves a record the index cannot see,
// which the next Create of the same id repairs and List never surfaces.
func (s *Store[T]) Create(ctx context.Context, rec T) error {
	ctx, span := tracer.Start(ctx, "Store.Create")
	defer span.End()
	span.SetAttributes(attribute.String("entity.kind", s.kind), attribute.String("entity.id", rec.EntityID()))

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind, err)
	}

	err = s.c.execute(ctx, func() error {
		return s.c.doPost(ctx, recordsTable, map[string]any{
			"kind": s.kind,
			"id":   rec.EntityID(),
			"doc":  json.RawMessage(doc),
		})
	})
	if err != nil {
		return s.wrap(err)
	}

	err = s.c.execute(ctx, func() error {
		return s.c.doPost(ctx, indexTable, map[string]any{
			"kind": s.kind,
			"id":   rec.EntityID(),
		})
	})
	if err != nil {
		return s.wrap(err)
	}
	return nil
}

// Save overwrites an existing record in place.
func (s *Store[T]) Save(ctx context.Context, id string, rec T) error {
	ctx, span := tracer.Start(ctx, "Store.Save")
	defer span.End()
	span.SetAttributes(attribute.String("entity.kind", s.kind), attribute.String("entity.id", id))

	present, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !present {
		return &domain.ErrNotFound{Resource: s.kind, ID: id}
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind, err)
	}

	path := fmt.Sprintf("%s?kind=eq.%s&id=eq.%s", recordsTable, s.kind, url.QueryEscape(id))
	err = s.c.execute(ctx, func() error {
		return s.c.doPatch(ctx, path, map[string]any{"doc": json.RawMessage(doc)})
	})
	if err != nil {
		return s.wrap(err)
	}
	return nil
}

// Exists checks the kind's index for the id.
func (s *Store[T]) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Store.Exists")
	defer span.End()

	var present bool
	err := s.c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?kind=eq.%s&id=eq.%s&select=id&limit=1", indexTable, s.kind, url.QueryEscape(id))
		body, err := s.c.doGet(ctx, path)
		if err != nil {
			return err
		}
		var rows []indexRow
		if body != nil {
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode index: %w", err)
			}
		}
		present = len(rows) > 0
		return nil
	})
	if err != nil {
		return false, s.wrap(err)
	}
	return present, nil
}

// Delete removes the record and its index entry, reporting whether a
// record was actually present.
func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Store.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("entity.kind", s.kind), attribute.String("entity.id", id))

	present, err := s.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	recPath := fmt.Sprintf("%s?kind=eq.%s&id=eq.%s", recordsTable, s.kind, url.QueryEscape(id))
	if err := s.c.execute(ctx, func() error { return s.c.doDelete(ctx, recPath) }); err != nil {
		return false, s.wrap(err)
	}

	idxPath := fmt.Sprintf("%s?kind=eq.%s&id=eq.%s", indexTable, s.kind, url.QueryEscape(id))
	if err := s.c.execute(ctx, func() error { return s.c.doDelete(ctx, idxPath) }); err != nil {
		return false, s.wrap(err)
	}
	return true, nil
}

// List reads a snapshot of the kind's index in storage order, then
// fetches every member individually, in parallel bounded by the
// bulkhead. An index entry whose record is missing is skipped rather
// than failing the whole listing.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Store.List")
	defer span.End()
	span.SetAttributes(attribute.String("entity.kind", s.kind))

	var ids []string
	err := s.c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?kind=eq.%s&select=id&order=pos.asc", indexTable, s.kind)
		body, err := s.c.doGet(ctx, path)
		if err != nil {
			return err
		}
		ids = ids[:0]
		if body == nil {
			return nil
		}
		var rows []indexRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode index: %w", err)
		}
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(err)
	}

	slots := make([]*T, len(ids))
	g, gCtx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			rec, ok, err := s.fetchOne(gCtx, id)
			if err != nil {
				return err
			}
			if ok {
				slots[i] = &rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.wrap(err)
	}

	out := make([]T, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// fetchOne loads a single record. ok=false means the index pointed at
// a record that is gone; the caller skips it.
func (s *Store[T]) fetchOne(ctx context.Context, id string) (T, bool, error) {
	var rec T
	var found bool

	err := s.c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?kind=eq.%s&id=eq.%s&limit=1", recordsTable, s.kind, url.QueryEscape(id))
		body, err := s.c.doGet(ctx, path)
		if err != nil {
			return err
		}
		found = false
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []recordRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode %s: %w", s.kind, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := json.Unmarshal(rows[0].Doc, &rec); err != nil {
			return fmt.Errorf("decode %s doc: %w", s.kind, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return rec, false, err
	}
	return rec, found, nil
}

// wrap turns backend failures into the error kinds the boundary maps,
// leaving already-typed domain errors untouched. Fresh backend
// failures count against the store error metric.
func (s *Store[T]) wrap(err error) error {
	switch err.(type) {
	case *domain.ErrCircuitOpen, *domain.ErrNotFound, *domain.ErrExternalService:
		return err
	}
	s.c.metrics.IncrStoreError("postgrest")
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: s.kind}
	}
	return &domain.ErrExternalService{Service: "postgrest/" + s.kind, Err: err}
}

// Categories is the PostgREST category store plus the one-time seed.
type Categories struct {
	*Store[domain.Category]
}

// NewCategories creates the category store.
func NewCategories(c *Client, maxConcurrency int) *Categories {
	return &Categories{Store: NewStore[domain.Category](c, "category", maxConcurrency)}
}

// EnsureSeed creates the fixed default category set when the category
// index is empty. Safe to call repeatedly. The bool reports whether
// this call wrote the seed.
func (c *Categories) EnsureSeed(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "Categories.EnsureSeed")
	defer span.End()

	var empty bool
	err := c.c.execute(ctx, func() error {
		path := fmt.Sprintf("%s?kind=eq.category&select=id&limit=1", indexTable)
		body, err := c.c.doGet(ctx, path)
		if err != nil {
			return err
		}
		var rows []indexRow
		if body != nil {
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("decode index: %w", err)
			}
		}
		empty = len(rows) == 0
		return nil
	})
	if err != nil {
		return false, c.wrap(err)
	}
	if !empty {
		return false, nil
	}

	for _, cat := range domain.SeedCategories {
		if err := c.Create(ctx, cat); err != nil {
			return false, err
		}
	}
	return true, nil
}
