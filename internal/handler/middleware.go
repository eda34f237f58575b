package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/villa-finans-go/internal/infra/observability"
	"github.com/boddenberg/villa-finans-go/internal/service"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// GateAuthMiddleware validates Bearer gate tokens on mutating requests.
// Reads pass through: the dashboard shows data before login.
func GateAuthMiddleware(authSvc *service.GateAuth, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("gate: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeFail(w, http.StatusUnauthorized, "authentication token required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("gate: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeFail(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			if _, err := authSvc.ValidateToken(parts[1]); err != nil {
				logger.Warn("gate: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeFail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SeedMiddleware runs the one-time default category seed before any
// API request touches the stores. The service memoizes a positive
// check, so the steady-state cost is a cache read.
func SeedMiddleware(svc *service.Ledger, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := svc.EnsureSeed(r.Context()); err != nil {
				handleServiceError(w, err, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestCounterMiddleware feeds the requests_total counter behind the
// /api/stats snapshot.
func RequestCounterMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= 400 {
				metrics.IncrRequest("error")
			} else {
				metrics.IncrRequest("success")
			}
		})
	}
}
