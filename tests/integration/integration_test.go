package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/handler"
	"github.com/boddenberg/villa-finans-go/internal/infra/cache"
	"github.com/boddenberg/villa-finans-go/internal/infra/kvstore"
	"github.com/boddenberg/villa-finans-go/internal/infra/observability"
	"github.com/boddenberg/villa-finans-go/internal/infra/resilience"
	"github.com/boddenberg/villa-finans-go/internal/service"
	"github.com/boddenberg/villa-finans-go/internal/validation"

	"go.uber.org/zap"
)

// fakePostgrest emulates the two PostgREST tables the entity store
// talks to: entity_records (kind, id, doc) and entity_index (kind, id,
// pos). Just enough of the filter syntax is parsed to serve the store.
type fakePostgrest struct {
	mu      sync.Mutex
	records map[string]map[string]json.RawMessage // kind -> id -> doc
	index   map[string][]string                   // kind -> ids in pos order
}

func newFakePostgrest() *fakePostgrest {
	return &fakePostgrest{
		records: make(map[string]map[string]json.RawMessage),
		index:   make(map[string][]string),
	}
}

// eq extracts the value of a PostgREST "eq." filter, e.g. kind=eq.category.
func eq(r *http.Request, param string) string {
	v := r.URL.Query().Get(param)
	return strings.TrimPrefix(v, "eq.")
}

func (f *fakePostgrest) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/entity_records", f.handleRecords)
	mux.HandleFunc("/rest/v1/entity_index", f.handleIndex)
	return mux
}

func (f *fakePostgrest) handleRecords(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind := eq(r, "kind")
	id := eq(r, "id")

	switch r.Method {
	case http.MethodGet:
		type row struct {
			Kind string          `json:"kind"`
			ID   string          `json:"id"`
			Doc  json.RawMessage `json:"doc"`
		}
		rows := []row{}
		if doc, ok := f.records[kind][id]; ok {
			rows = append(rows, row{Kind: kind, ID: id, Doc: doc})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Kind string          `json:"kind"`
			ID   string          `json:"id"`
			Doc  json.RawMessage `json:"doc"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if f.records[payload.Kind] == nil {
			f.records[payload.Kind] = make(map[string]json.RawMessage)
		}
		f.records[payload.Kind][payload.ID] = payload.Doc
		w.WriteHeader(http.StatusCreated)

	case http.MethodPatch:
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Doc json.RawMessage `json:"doc"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := f.records[kind][id]; !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		f.records[kind][id] = payload.Doc
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		delete(f.records[kind], id)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakePostgrest) handleIndex(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind := eq(r, "kind")
	id := eq(r, "id")

	switch r.Method {
	case http.MethodGet:
		type row struct {
			ID string `json:"id"`
		}
		rows := []row{}
		for _, entry := range f.index[kind] {
			if id != "" && entry != id {
				continue
			}
			rows = append(rows, row{ID: entry})
		}
		if limit := r.URL.Query().Get("limit"); limit == "1" && len(rows) > 1 {
			rows = rows[:1]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, entry := range f.index[payload.Kind] {
			if entry == payload.ID {
				w.WriteHeader(http.StatusCreated)
				return
			}
		}
		f.index[payload.Kind] = append(f.index[payload.Kind], payload.ID)
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		entries := f.index[kind]
		for i, entry := range entries {
			if entry == id {
				f.index[kind] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// danglingIndexEntry plants an index entry with no backing record.
func (f *fakePostgrest) danglingIndexEntry(kind, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index[kind] = append(f.index[kind], id)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newKVRouter(t *testing.T, baseURL string) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	cb := resilience.NewCircuitBreaker("postgrest-test")
	httpClient := &http.Client{Timeout: 5 * time.Second}

	kvClient := kvstore.NewClient(httpClient, baseURL, "anon", "service-role", cb, cfg, metrics, logger)
	svc := service.NewLedger(
		kvstore.NewCategories(kvClient, 4),
		kvstore.NewStore[domain.Transaction](kvClient, "transaction", 4),
		cache.New[bool](5*time.Minute),
		metrics,
		logger,
	)
	authSvc := service.NewGateAuth("", "villa-secret", "test-jwt-secret", time.Hour, logger)

	return handler.NewRouter(svc, authSvc, validation.New(), metrics, logger, handler.RouterOptions{
		AllowedOrigins: []string{"*"},
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not an envelope: %v (body %q)", method, path, err, rec.Body.String())
	}
	return rec, env
}

// TestIntegration_KVStoreFullFlow exercises seeding, writes, and the
// joined listing against the PostgREST fake.
func TestIntegration_KVStoreFullFlow(t *testing.T) {
	fake := newFakePostgrest()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	router := newKVRouter(t, server.URL)

	// First request seeds the default categories.
	rec, env := doJSON(t, router, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories: expected 200, got %d (error %q)", rec.Code, env.Error)
	}
	var cats []domain.Category
	if err := json.Unmarshal(env.Data, &cats); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(cats) != len(domain.SeedCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(domain.SeedCategories), len(cats))
	}

	// Record income against a seeded category.
	rec, env = doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2025-07-01T09:00:00Z", "type": "income", "categoryId": "cat_inc_1",
		"amount": 2500, "user": "Kaan", "description": "July rent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d (error %q)", rec.Code, env.Error)
	}
	var created domain.Transaction
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}

	// Update it in place.
	rec, env = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/transactions/%s", created.ID), map[string]any{
		"date": "2025-07-01T09:00:00Z", "type": "income", "categoryId": "cat_inc_1",
		"amount": 2600, "user": "Kaan", "description": "July rent, corrected",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update transaction: expected 200, got %d (error %q)", rec.Code, env.Error)
	}

	// The listing joins the seeded category and sees the new amount.
	rec, env = doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list transactions: expected 200, got %d (error %q)", rec.Code, env.Error)
	}
	var list domain.TransactionList
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(list.Transactions))
	}
	txn := list.Transactions[0]
	if txn.Amount != 2600 {
		t.Errorf("expected updated amount 2600, got %v", txn.Amount)
	}
	if txn.Category == nil || txn.Category.Name != "Kira" {
		t.Errorf("expected joined Kira category, got %+v", txn.Category)
	}
	if list.Summary.TotalIncome != 2600 || list.Summary.CurrentBalance != 2600 {
		t.Errorf("unexpected summary %+v", list.Summary)
	}

	// Delete and verify the listing empties out.
	rec, env = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/transactions/%s", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete transaction: expected 200, got %d (error %q)", rec.Code, env.Error)
	}
	var result domain.DeleteResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode delete result: %v", err)
	}
	if !result.Deleted {
		t.Error("expected deleted=true")
	}

	_, env = doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Transactions) != 0 {
		t.Fatalf("expected empty listing after delete, got %d", len(list.Transactions))
	}
}

// TestIntegration_ListSkipsDanglingIndexEntry plants an index entry
// whose record never landed and verifies listings ignore it.
func TestIntegration_ListSkipsDanglingIndexEntry(t *testing.T) {
	fake := newFakePostgrest()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	router := newKVRouter(t, server.URL)

	rec, env := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2025-07-02T09:00:00Z", "type": "expense", "categoryId": "cat_exp_3",
		"amount": 120, "user": "Sefa",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d (error %q)", rec.Code, env.Error)
	}

	fake.danglingIndexEntry("transaction", "txn_ghost")

	rec, env = doJSON(t, router, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list transactions: expected 200, got %d (error %q)", rec.Code, env.Error)
	}
	var list domain.TransactionList
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Transactions) != 1 {
		t.Fatalf("expected the dangling entry to be skipped, got %d transactions", len(list.Transactions))
	}
	if list.Transactions[0].ID == "txn_ghost" {
		t.Fatal("ghost transaction surfaced in the listing")
	}
}

// TestIntegration_BreakerOpenIs503 drives the breaker open against a
// dead backend and verifies the API degrades to 503.
func TestIntegration_BreakerOpenIs503(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"backend down"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	router := newKVRouter(t, server.URL)

	// The breaker trips after 5 failed requests.
	for i := 0; i < 5; i++ {
		rec, _ := doJSON(t, router, http.MethodGet, "/api/categories", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("warm-up request %d: expected 500, got %d", i, rec.Code)
		}
	}

	rec, env := doJSON(t, router, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once the breaker opened, got %d (error %q)", rec.Code, env.Error)
	}
	if env.Success {
		t.Error("expected failure envelope")
	}
}
