package handler

import (
	"net/http"

	"github.com/boddenberg/villa-finans-go/internal/infra/observability"
	"github.com/boddenberg/villa-finans-go/internal/service"
	"github.com/boddenberg/villa-finans-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// RouterOptions toggles the optional surfaces of the API.
type RouterOptions struct {
	// AuthRequired guards mutating /api requests behind a gate token.
	AuthRequired bool

	// AllowedOrigins is handed to the CORS middleware. The dashboard
	// is a browser SPA, so this defaults to "*" in dev.
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
// Every /api response uses the {success, data?, error?} envelope.
func NewRouter(svc *service.Ledger, authSvc *service.GateAuth, va *validation.Validator, metrics *observability.Metrics, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(RequestCounterMiddleware(metrics))
		r.Use(SeedMiddleware(svc, logger))

		// =============================================
		// Auth & stats (always public)
		// =============================================
		r.Post("/auth/login", loginHandler(authSvc, va, logger))
		r.Get("/stats", statsHandler(metrics, logger))

		r.Group(func(r chi.Router) {
			if opts.AuthRequired {
				r.Use(GateAuthMiddleware(authSvc, logger))
			}

			// =============================================
			// Categories
			// =============================================
			r.Get("/categories", listCategoriesHandler(svc, logger))
			r.Post("/categories", createCategoryHandler(svc, va, logger))
			r.Put("/categories/{id}", updateCategoryHandler(svc, va, logger))
			r.Delete("/categories/{id}", deleteCategoryHandler(svc, logger))

			// =============================================
			// Transactions
			// =============================================
			r.Get("/transactions", listTransactionsHandler(svc, logger))
			r.Post("/transactions", createTransactionHandler(svc, va, logger))
			r.Put("/transactions/{id}", updateTransactionHandler(svc, va, logger))
			r.Delete("/transactions/{id}", deleteTransactionHandler(svc, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
