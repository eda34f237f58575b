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
// Transactions — /api/transactions
// ============================================================

func listTransactionsHandler(svc *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/transactions")
		defer span.End()

		list, err := svc.GetTransactionList(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, list)
	}
}

func createTransactionHandler(svc *service.Ledger, va *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/transactions")
		defer span.End()

		var payload domain.NewTransaction
		if err := decodeBody(r, &payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := va.Transaction(&payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txn, err := svc.CreateTransaction(ctx, &payload)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusCreated, txn)
	}
}

func updateTransactionHandler(svc *service.Ledger, va *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /api/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")

		var payload domain.NewTransaction
		if err := decodeBody(r, &payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := va.Transaction(&payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txn, err := svc.UpdateTransaction(ctx, id, &payload)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, txn)
	}
}

func deleteTransactionHandler(svc *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")

		result, err := svc.DeleteTransaction(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, result)
	}
}
