package handler

import (
	"net/http"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/service"
	"github.com/boddenberg/villa-finans-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Categories — /api/categories
// ============================================================

func listCategoriesHandler(svc *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/categories")
		defer span.End()

		cats, err := svc.ListCategories(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, cats)
	}
}

func createCategoryHandler(svc *service.Ledger, va *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/categories")
		defer span.End()

		var payload domain.NewCategory
		if err := decodeBody(r, &payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := va.Category(&payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		cat, err := svc.CreateCategory(ctx, &payload)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, cat)
	}
}

func updateCategoryHandler(svc *service.Ledger, va *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/categories/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")

		var payload domain.NewCategory
		if err := decodeBody(r, &payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := va.Category(&payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		cat, err := svc.UpdateCategory(ctx, id, &payload)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, cat)
	}
}

func deleteCategoryHandler(svc *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/categories/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")

		// Deleting an unknown id reports deleted=false, not an error.
		result, err := svc.DeleteCategory(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}
