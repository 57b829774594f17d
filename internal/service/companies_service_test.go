package service

import (
	"context"
	"testing"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
)

func TestListCompanies_WithStats(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())
	other := domain.Company{
		ID:           "c0000000-0000-0000-0000-000000000002",
		TaxID:        "OTR010101BBB",
		LegalName:    "Abarrotes del Sur",
		DemoScenario: "B",
		CreatedAt:    testNow,
	}
	store.AddCompany(other)

	store.AddInvoices(
		testInvoice("inv-1", domain.KindIncome, "116", testNow),
		testInvoice("inv-2", domain.KindExpense, "58", testNow),
	)
	store.AddAlert(testAlert("a-1", domain.AlertLiquidity, domain.SeverityYellow))
	snap := &domain.HealthScoreSnapshot{ID: "snap-1", CompanyID: testCompanyID, Total: 77, CreatedAt: testNow}
	if err := store.InsertScore(context.Background(), snap); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}

	svc := newTestService(store)
	companies, err := svc.ListCompanies(context.Background(), "", testNow)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("got %d companies, want 2", len(companies))
	}

	// Sorted by legal name: Abarrotes before Comercializadora.
	if companies[0].LegalName != "Abarrotes del Sur" {
		t.Errorf("first company = %q, want alphabetical order", companies[0].LegalName)
	}

	seeded := companies[1]
	if !seeded.MonthIncome.Equal(dec("116")) {
		t.Errorf("MonthIncome = %s, want 116", seeded.MonthIncome)
	}
	if !seeded.MonthExpense.Equal(dec("58")) {
		t.Errorf("MonthExpense = %s, want 58", seeded.MonthExpense)
	}
	if seeded.TotalInvoices != 2 {
		t.Errorf("TotalInvoices = %d, want 2", seeded.TotalInvoices)
	}
	if seeded.HealthScore != 77 {
		t.Errorf("HealthScore = %d, want 77", seeded.HealthScore)
	}
	if seeded.ActiveAlerts != 1 {
		t.Errorf("ActiveAlerts = %d, want 1", seeded.ActiveAlerts)
	}

	empty := companies[0]
	if empty.HealthScore != 0 || empty.ActiveAlerts != 0 || empty.TotalInvoices != 0 {
		t.Errorf("company without data should have zero stats: %+v", empty)
	}
}

func TestListCompanies_ScenarioFilter(t *testing.T) {
	store := memory.NewStore()
	a := newTestCompany()
	a.DemoScenario = "A"
	store.AddCompany(a)
	b := domain.Company{ID: "c2", TaxID: "X", LegalName: "Otra", DemoScenario: "B", CreatedAt: testNow}
	store.AddCompany(b)

	svc := newTestService(store)
	companies, err := svc.ListCompanies(context.Background(), "B", testNow)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(companies) != 1 || companies[0].DemoScenario != "B" {
		t.Errorf("scenario filter returned %d companies", len(companies))
	}
}

func TestGetCompanyDetail(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())
	store.AddInvoices(testInvoice("inv-1", domain.KindIncome, "1000", testNow))

	svc := newTestService(store)
	detail, err := svc.GetCompanyDetail(context.Background(), testCompanyID, testNow)
	if err != nil {
		t.Fatalf("GetCompanyDetail: %v", err)
	}
	if detail.ID != testCompanyID {
		t.Errorf("ID = %s", detail.ID)
	}
	if !detail.MonthIncome.Equal(dec("1000")) {
		t.Errorf("MonthIncome = %s, want 1000", detail.MonthIncome)
	}
}
