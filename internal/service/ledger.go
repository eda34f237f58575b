// Package service holds the ledger service (categories, transactions,
// aggregation) and the gate auth service.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/infra/observability"
	"github.com/boddenberg/villa-finans-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/ledger")

// startingBalance is the opening balance the running balance builds on.
// The product has no configurable opening balance.
const startingBalance = 0.0

const seededCacheKey = "seeded:category"

// Ledger orchestrates category and transaction storage and derives the
// transaction read model.
type Ledger struct {
	categories   port.CategoryStore
	transactions port.TransactionStore
	seedCheck    port.Cache[bool]
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewLedger creates the ledger service with all dependencies injected.
func NewLedger(
	categories port.CategoryStore,
	transactions port.TransactionStore,
	seedCheck port.Cache[bool],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		categories:   categories,
		transactions: transactions,
		seedCheck:    seedCheck,
		metrics:      metrics,
		logger:       logger,
	}
}

// EnsureSeed runs the store's one-time default category seed. It is
// called on every API request, so a positive check is memoized.
func (l *Ledger) EnsureSeed(ctx context.Context) error {
	if seeded, ok := l.seedCheck.Get(seededCacheKey); ok && seeded {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Ledger.EnsureSeed")
	defer span.End()

	wrote, err := l.categories.EnsureSeed(ctx)
	if err != nil {
		return fmt.Errorf("ensure seed: %w", err)
	}
	if wrote {
		l.metrics.IncrSeedRun()
		l.logger.Info("default categories seeded",
			zap.Int("count", len(domain.SeedCategories)),
		)
	}
	l.seedCheck.Set(seededCacheKey, true)
	return nil
}

// ============================================================
// Categories
// ============================================================

// ListCategories returns all categories sorted by name.
func (l *Ledger) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Ledger.ListCategories")
	defer span.End()

	cats, err := l.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// CreateCategory assigns a fresh id and stores the category.
func (l *Ledger) CreateCategory(ctx context.Context, p *domain.NewCategory) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Ledger.CreateCategory")
	defer span.End()

	cat := domain.Category{
		ID:   fmt.Sprintf("cat_%s", uuid.New().String()),
		Name: p.Name,
		Type: domain.TransactionType(p.Type),
	}
	if err := l.categories.Create(ctx, cat); err != nil {
		return nil, err
	}

	l.metrics.IncrEntityOp("category", "create")
	l.logger.Info("category created",
		zap.String("category_id", cat.ID),
		zap.String("type", string(cat.Type)),
	)
	return &cat, nil
}

// UpdateCategory overwrites an existing category in place.
func (l *Ledger) UpdateCategory(ctx context.Context, id string, p *domain.NewCategory) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Ledger.UpdateCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", id))

	cat := domain.Category{
		ID:   id,
		Name: p.Name,
		Type: domain.TransactionType(p.Type),
	}
	if err := l.categories.Save(ctx, id, cat); err != nil {
		return nil, err
	}

	l.metrics.IncrEntityOp("category", "save")
	return &cat, nil
}

// DeleteCategory removes a category. Transactions referencing it keep
// their categoryId and render as "unknown"; there is no cascade.
func (l *Ledger) DeleteCategory(ctx context.Context, id string) (*domain.DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "Ledger.DeleteCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", id))

	deleted, err := l.categories.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted {
		l.metrics.IncrEntityOp("category", "delete")
	}
	return &domain.DeleteResult{ID: id, Deleted: deleted}, nil
}

// ============================================================
// Transactions
// ============================================================

// CreateTransaction assigns a fresh id and stores the transaction.
// The categoryId reference is soft; it is stored as given.
func (l *Ledger) CreateTransaction(ctx context.Context, p *domain.NewTransaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Ledger.CreateTransaction")
	defer span.End()

	txn := domain.Transaction{
		ID:          fmt.Sprintf("txn_%s", uuid.New().String()),
		Date:        p.Date,
		Type:        domain.TransactionType(p.Type),
		CategoryID:  p.CategoryID,
		Amount:      p.Amount,
		User:        p.User,
		Description: p.Description,
	}
	if err := l.transactions.Create(ctx, txn); err != nil {
		return nil, err
	}

	l.metrics.IncrEntityOp("transaction", "create")
	l.logger.Info("transaction created",
		zap.String("transaction_id", txn.ID),
		zap.String("type", string(txn.Type)),
		zap.Float64("amount", txn.Amount),
		zap.String("user", txn.User),
	)
	return &txn, nil
}

// UpdateTransaction overwrites an existing transaction in place.
func (l *Ledger) UpdateTransaction(ctx context.Context, id string, p *domain.NewTransaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Ledger.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	txn := domain.Transaction{
		ID:          id,
		Date:        p.Date,
		Type:        domain.TransactionType(p.Type),
		CategoryID:  p.CategoryID,
		Amount:      p.Amount,
		User:        p.User,
		Description: p.Description,
	}
	if err := l.transactions.Save(ctx, id, txn); err != nil {
		return nil, err
	}

	l.metrics.IncrEntityOp("transaction", "save")
	return &txn, nil
}

// DeleteTransaction removes a transaction.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) (*domain.DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "Ledger.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	deleted, err := l.transactions.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted {
		l.metrics.IncrEntityOp("transaction", "delete")
	}
	return &domain.DeleteResult{ID: id, Deleted: deleted}, nil
}

// ============================================================
// Aggregation
// ============================================================

// GetTransactionList builds the read model: transactions joined to
// their category, sorted by date descending, with the derived summary.
// The summary is recomputed on every call and never cached.
func (l *Ledger) GetTransactionList(ctx context.Context) (*domain.TransactionList, error) {
	ctx, span := tracer.Start(ctx, "Ledger.GetTransactionList")
	defer span.End()

	start := time.Now()
	defer func() {
		l.metrics.RecordRequestDuration("transaction_list", time.Since(start))
	}()

	// Load transactions and categories concurrently; neither load
	// depends on the other.
	var (
		txns []domain.Transaction
		cats []domain.Category
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := l.transactions.List(gCtx)
		if err != nil {
			return fmt.Errorf("transactions load: %w", err)
		}
		txns = t
		return nil
	})
	g.Go(func() error {
		c, err := l.categories.List(gCtx)
		if err != nil {
			return fmt.Errorf("categories load: %w", err)
		}
		cats = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	joined := make([]domain.Transaction, len(txns))
	for i, t := range txns {
		if c, ok := byID[t.CategoryID]; ok {
			t.Category = &c
		}
		// An unresolvable categoryId stays nil; consumers render it
		// as "unknown", never as an error.
		joined[i] = t
	}

	// Most recent first; ties keep storage order.
	sort.SliceStable(joined, func(i, j int) bool {
		return parseDate(joined[i].Date).After(parseDate(joined[j].Date))
	})

	var summary domain.TransactionSummary
	for _, t := range joined {
		switch t.Type {
		case domain.TypeIncome:
			summary.TotalIncome += t.Amount
		case domain.TypeExpense:
			summary.TotalExpenses += t.Amount
		}
	}
	summary.NetProfit = summary.TotalIncome - summary.TotalExpenses
	summary.CurrentBalance = startingBalance + summary.NetProfit

	return &domain.TransactionList{Transactions: joined, Summary: summary}, nil
}

// parseDate interprets a stored timestamp for ordering. Validation
// guarantees RFC 3339 on write; anything else sorts to the end.
func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
