package validation_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/validation"
)

func validTransaction() domain.NewTransaction {
	return domain.NewTransaction{
		Date:       "2024-05-01T00:00:00Z",
		Type:       "income",
		CategoryID: "cat_inc_1",
		Amount:     1000,
		User:       "Kaan",
	}
}

func TestCategory_Valid(t *testing.T) {
	va := validation.New()

	err := va.Category(&domain.NewCategory{Name: "Rent", Type: "income"})
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestCategory_Rejections(t *testing.T) {
	va := validation.New()

	cases := []struct {
		name    string
		payload domain.NewCategory
		field   string
	}{
		{"empty name", domain.NewCategory{Name: "", Type: "income"}, "name"},
		{"bad type", domain.NewCategory{Name: "Rent", Type: "donation"}, "type"},
		{"missing type", domain.NewCategory{Name: "Rent"}, "type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := va.Category(&tc.payload)
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestTransaction_Valid(t *testing.T) {
	va := validation.New()

	p := validTransaction()
	if err := va.Transaction(&p); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestTransaction_OptionalDescription(t *testing.T) {
	va := validation.New()

	p := validTransaction()
	p.Description = "mayıs kirası"
	if err := va.Transaction(&p); err != nil {
		t.Fatalf("expected valid payload with description, got %v", err)
	}
}

func TestTransaction_Rejections(t *testing.T) {
	va := validation.New()

	cases := []struct {
		name   string
		mutate func(*domain.NewTransaction)
		field  string
	}{
		{"zero amount", func(p *domain.NewTransaction) { p.Amount = 0 }, "amount"},
		{"negative amount", func(p *domain.NewTransaction) { p.Amount = -5 }, "amount"},
		{"bad type", func(p *domain.NewTransaction) { p.Type = "donation" }, "type"},
		{"missing categoryId", func(p *domain.NewTransaction) { p.CategoryID = "" }, "categoryId"},
		{"unknown user", func(p *domain.NewTransaction) { p.User = "Ayşe" }, "user"},
		{"missing date", func(p *domain.NewTransaction) { p.Date = "" }, "date"},
		{"unparseable date", func(p *domain.NewTransaction) { p.Date = "May 1st 2024" }, "date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validTransaction()
			tc.mutate(&p)

			err := va.Transaction(&p)
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestTransaction_DanglingCategoryAccepted(t *testing.T) {
	va := validation.New()

	// Referential integrity is deliberately not checked at write time.
	p := validTransaction()
	p.CategoryID = "cat_does_not_exist"
	if err := va.Transaction(&p); err != nil {
		t.Fatalf("dangling categoryId must be accepted, got %v", err)
	}
}
