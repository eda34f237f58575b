package handler

import (
	"net/http"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/infra/observability"
	"github.com/boddenberg/villa-finans-go/internal/service"
	"github.com/boddenberg/villa-finans-go/internal/validation"

	"go.uber.org/zap"
)

// ============================================================
// Auth & stats
// ============================================================

func loginHandler(authSvc *service.GateAuth, va *validation.Validator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/auth/login")
		defer span.End()

		var payload domain.LoginRequest
		if err := decodeBody(r, &payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := va.Login(&payload); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp, err := authSvc.Login(ctx, &payload)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeData(w, http.StatusOK, resp)
	}
}

func statsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /api/stats")
		defer span.End()

		writeData(w, http.StatusOK, metrics.GetStatsSnapshot())
	}
}
