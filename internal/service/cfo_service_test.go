package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
)

func TestCFOChat_DefaultSummary(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())
	store.AddInvoices(
		testInvoice("inv-1", domain.KindIncome, "10000", testNow),
		testInvoice("inv-2", domain.KindExpense, "4000", testNow),
	)

	svc := newTestService(store)
	reply, err := svc.CFOChat(context.Background(), testCompanyID, "hola, ¿cómo va mi empresa?", testNow)
	if err != nil {
		t.Fatalf("CFOChat: %v", err)
	}
	if !strings.Contains(reply.Response, "Resumen ejecutivo") {
		t.Errorf("Response = %q, want executive summary for unmatched question", reply.Response)
	}
	if !strings.Contains(reply.Response, "$10,000 MXN") {
		t.Errorf("Response = %q, want formatted month income", reply.Response)
	}
	if len(reply.Sources) == 0 || reply.Disclaimer == "" {
		t.Error("reply must carry sources and a disclaimer")
	}
}

func TestCFOChat_CashFlowTopic(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())
	store.AddInvoices(
		testInvoice("inv-1", domain.KindIncome, "10000", testNow),
		testInvoice("inv-2", domain.KindExpense, "4000", testNow),
	)

	svc := newTestService(store)
	reply, err := svc.CFOChat(context.Background(), testCompanyID, "¿Cómo está mi FLUJO de efectivo?", testNow)
	if err != nil {
		t.Fatalf("CFOChat: %v", err)
	}
	if !strings.Contains(reply.Response, "tendencia positiva") {
		t.Errorf("Response = %q, want positive trend for 60%% margin", reply.Response)
	}
	if !strings.Contains(reply.Response, "60.0%") {
		t.Errorf("Response = %q, want margin figure", reply.Response)
	}
}

func TestCFOChat_ScoreTopicUsesLatestSnapshot(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())
	snap := &domain.HealthScoreSnapshot{
		ID: "hs-1", CompanyID: testCompanyID, Total: 84,
		Liquidity: 90, FiscalCompliance: 95, ClientDiversification: 60,
		RevenueTrend: 80, OperatingMargin: 85, Seasonality: 88,
		ReceivablesAging: 82, SupplierRisk: 86,
		CreatedAt: testNow,
	}
	if err := store.InsertScore(context.Background(), snap); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}

	svc := newTestService(store)
	reply, err := svc.CFOChat(context.Background(), testCompanyID, "explícame mi score", testNow)
	if err != nil {
		t.Fatalf("CFOChat: %v", err)
	}
	if !strings.Contains(reply.Response, "84/100") {
		t.Errorf("Response = %q, want score total", reply.Response)
	}
	if !strings.Contains(reply.Response, "Cumplimiento fiscal") {
		t.Errorf("Response = %q, want component breakdown", reply.Response)
	}
}

func TestCFOChat_ScoreTopicWithoutSnapshot(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	reply, err := svc.CFOChat(context.Background(), testCompanyID, "score", testNow)
	if err != nil {
		t.Fatalf("CFOChat: %v", err)
	}
	if !strings.Contains(reply.Response, "No hay score disponible") {
		t.Errorf("Response = %q, want missing-score message", reply.Response)
	}
}

func TestCFOChat_SupplierTopicCitesBlacklistAlert(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())
	alert := testAlert("a-1", domain.AlertBlacklist, domain.SeverityRed)
	alert.Title = "Proveedor en lista EFOS"
	store.AddAlert(alert)

	svc := newTestService(store)
	reply, err := svc.CFOChat(context.Background(), testCompanyID, "¿tengo riesgo EFOS?", testNow)
	if err != nil {
		t.Fatalf("CFOChat: %v", err)
	}
	if !strings.Contains(reply.Response, "Proveedor en lista EFOS") {
		t.Errorf("Response = %q, want the blacklist alert cited", reply.Response)
	}
}

func TestCFOChat_SupplierTopicCleanWithoutAlerts(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	reply, err := svc.CFOChat(context.Background(), testCompanyID, "estado de mis proveedores", testNow)
	if err != nil {
		t.Fatalf("CFOChat: %v", err)
	}
	if !strings.Contains(reply.Response, "Sin proveedores en lista EFOS") {
		t.Errorf("Response = %q, want clean supplier status", reply.Response)
	}
}

func TestCFOChat_EmptyMessageIsValidationError(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	_, err := svc.CFOChat(context.Background(), testCompanyID, "   ", testNow)
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCFOChat_UnknownCompany(t *testing.T) {
	svc := newTestService(memory.NewStore())
	_, err := svc.CFOChat(context.Background(), testCompanyID, "flujo", testNow)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPesosFormatting(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"950", "$950"},
		{"10000", "$10,000"},
		{"1234567.49", "$1,234,567"},
		{"-52000", "-$52,000"},
	}
	for _, tc := range cases {
		if got := pesos(dec(tc.in)); got != tc.want {
			t.Errorf("pesos(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
