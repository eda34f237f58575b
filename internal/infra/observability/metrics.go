package observability

import (
	"time"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the finance tracker.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	entityOps       *prometheus.CounterVec
	seedRuns        prometheus.Counter
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "villa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "villa_store_errors_total",
				Help: "Total errors from the entity store backend.",
			},
			[]string{"backend"},
		),
		entityOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "villa_entity_ops_total",
				Help: "Total entity store operations by kind and op.",
			},
			[]string{"kind", "op"},
		),
		seedRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "villa_seed_runs_total",
				Help: "Times the default category seed actually wrote data.",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "villa_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store error counter for a backend.
func (m *Metrics) IncrStoreError(backend string) {
	m.storeErrors.WithLabelValues(backend).Inc()
}

// IncrEntityOp counts one store operation (create, save, delete, list).
func (m *Metrics) IncrEntityOp(kind, op string) {
	m.entityOps.WithLabelValues(kind, op).Inc()
}

// IncrSeedRun counts an actual seed write (not the per-request check).
func (m *Metrics) IncrSeedRun() {
	m.seedRuns.Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetStatsSnapshot returns a snapshot of service metrics suitable for the
// GET /api/stats endpoint.
func (m *Metrics) GetStatsSnapshot() *domain.StatsSnapshot {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	successCount := getCounterValue(m.requestsTotal, "success")
	errorCount := getCounterValue(m.requestsTotal, "error")
	totalRequests := successCount + errorCount

	categoryWrites := getCounterValue(m.entityOps, "category", "create") +
		getCounterValue(m.entityOps, "category", "save") +
		getCounterValue(m.entityOps, "category", "delete")
	transactionWrites := getCounterValue(m.entityOps, "transaction", "create") +
		getCounterValue(m.entityOps, "transaction", "save") +
		getCounterValue(m.entityOps, "transaction", "delete")

	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}

	return &domain.StatsSnapshot{
		TotalRequests:     int64(totalRequests),
		ErrorRate:         errorRate,
		CategoryWrites:    int64(categoryWrites),
		TransactionWrites: int64(transactionWrites),
		SeedRuns:          int64(getSingleCounterValue(m.seedRuns)),
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec
// for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
