// Package validation rejects malformed create/update payloads before
// they reach the store. Rules mirror the API contract: field presence,
// enum membership, numeric positivity, parseable timestamps.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/boddenberg/villa-finans-go/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator validates incoming payloads. One instance is shared across
// handlers; validator/v10 caches struct metadata internally.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator. Field names in error messages come from the
// json tag so they match what the client actually sent.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Category validates a category create/update payload.
func (va *Validator) Category(p *domain.NewCategory) error {
	return va.check(p)
}

// Transaction validates a transaction create/update payload. The date
// must parse as an ISO 8601 timestamp. categoryId existence is NOT
// verified; a dangling reference is accepted.
func (va *Validator) Transaction(p *domain.NewTransaction) error {
	if err := va.check(p); err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339, p.Date); err != nil {
		return &domain.ErrValidation{Field: "date", Message: "must be a valid ISO 8601 timestamp"}
	}
	return nil
}

// Login validates the gate login payload.
func (va *Validator) Login(p *domain.LoginRequest) error {
	return va.check(p)
}

// check runs struct-tag validation and translates the first violation
// into a domain.ErrValidation naming the offending field.
func (va *Validator) check(payload any) error {
	err := va.v.Struct(payload)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return &domain.ErrValidation{Field: "payload", Message: err.Error()}
	}

	fe := errs[0]
	return &domain.ErrValidation{Field: fe.Field(), Message: messageFor(fe)}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
