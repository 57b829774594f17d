package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/handler"
	"github.com/poa-mx/poa-insights-go/internal/infra/cache"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
	"github.com/poa-mx/poa-insights-go/internal/infra/observability"
	"github.com/poa-mx/poa-insights-go/internal/service"
)

func newTestRouter(store *memory.Store) http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	svc := service.NewInsightsService(
		store, store, store,
		domain.DefaultPolicy(),
		cache.New[*domain.DashboardStats](time.Minute),
		metrics, logger,
	)
	authSvc := service.NewAuthService(store, "test-secret", 15*time.Minute, logger)
	return handler.NewRouter(svc, authSvc, store, store, metrics, logger)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServiceMetrics_CountsRequests(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/service", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap domain.ServiceMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.TotalRequests < 3 {
		t.Errorf("TotalRequests = %d, want at least 3", snap.TotalRequests)
	}
	if snap.ErrorRate != 0 {
		t.Errorf("ErrorRate = %f, want 0 for healthy requests", snap.ErrorRate)
	}
}

func TestDashboard_UnknownCompany(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/companies/nope/dashboard", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestScenariosEndpoint(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/scenarios", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Scenarios []domain.ScenarioInfo `json:"scenarios"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Scenarios) != 3 {
		t.Errorf("expected 3 scenarios, got %d", len(resp.Scenarios))
	}
}

func TestSeedThenDashboard(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/demo/seed?scenario=stable", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("seed: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stats domain.SeedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode seed stats: %v", err)
	}
	if stats.Companies != 1 || stats.Invoices == 0 {
		t.Fatalf("unexpected seed stats: %+v", stats)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/companies/"+memory.StableCompanyID+"/dashboard", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var dash domain.DashboardStats
	if err := json.NewDecoder(rec.Body).Decode(&dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(dash.Revenue) != 8 {
		t.Errorf("revenue series has %d points, want 8", len(dash.Revenue))
	}
	if dash.HealthScore == 0 {
		t.Errorf("seeded company should carry a health score")
	}
}

func TestSeed_UnknownScenario(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/demo/seed?scenario=Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSeedFlushesDashboardCache(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(domain.Company{ID: "c-1", LegalName: "Empresa Uno"})
	now := time.Now().UTC()
	store.AddInvoices(domain.Invoice{
		ID: "inv-1", Kind: domain.KindIncome, Status: domain.StatusValid,
		ReceiverTaxID: "CLI010101AAA", Total: decimal.NewFromInt(100),
		IssuedAt: now, CompanyID: "c-1", CreatedAt: now,
	})
	router := newTestRouter(store)

	getIncome := func() string {
		req := httptest.NewRequest(http.MethodGet, "/v1/companies/c-1/dashboard", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("dashboard: expected 200, got %d", rec.Code)
		}
		var stats domain.DashboardStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("decode dashboard: %v", err)
		}
		return stats.MonthIncome.String()
	}

	if got := getIncome(); got != "100" {
		t.Fatalf("MonthIncome = %s, want 100", got)
	}

	// The cached copy hides this write until something flushes.
	store.AddInvoices(domain.Invoice{
		ID: "inv-2", Kind: domain.KindIncome, Status: domain.StatusValid,
		ReceiverTaxID: "CLI010101AAA", Total: decimal.NewFromInt(100),
		IssuedAt: now, CompanyID: "c-1", CreatedAt: now,
	})
	if got := getIncome(); got != "100" {
		t.Fatalf("MonthIncome = %s, want cached 100", got)
	}

	seedReq := httptest.NewRequest(http.MethodPost, "/v1/demo/seed?scenario=stable", nil)
	router.ServeHTTP(httptest.NewRecorder(), seedReq)

	if got := getIncome(); got != "200" {
		t.Errorf("MonthIncome = %s, want 200 after the seed flushed the cache", got)
	}
}

func TestCFOChatEndpoint(t *testing.T) {
	store := memory.NewStore()
	router := newTestRouter(store)

	seedReq := httptest.NewRequest(http.MethodPost, "/v1/demo/seed?scenario=stable", nil)
	seedRec := httptest.NewRecorder()
	router.ServeHTTP(seedRec, seedReq)
	if seedRec.Code != http.StatusOK {
		t.Fatalf("seed: expected 200, got %d", seedRec.Code)
	}

	body := strings.NewReader(`{"message": "¿Cómo está mi flujo de efectivo?"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/companies/"+memory.StableCompanyID+"/cfo/chat", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reply domain.CFOChatReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !strings.Contains(reply.Response, "flujo de efectivo") {
		t.Errorf("Response = %q, want cash-flow answer", reply.Response)
	}
	if reply.Disclaimer == "" {
		t.Error("reply must carry a disclaimer")
	}
}

func TestCFOChat_EmptyMessage(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(domain.Company{ID: "c-1", LegalName: "Empresa Uno"})
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/companies/c-1/cfo/chat", strings.NewReader(`{"message": ""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAuthMe_RequiresToken(t *testing.T) {
	router := newTestRouter(memory.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
