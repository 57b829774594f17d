package service

import (
	"context"
	"testing"
	"time"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
)

func flatProfile() domain.GrowthProfile {
	return domain.GrowthProfile{
		Income:  [3]float64{1, 1, 1},
		Expense: [3]float64{1, 1, 1},
	}
}

func TestProject_FlatProfile(t *testing.T) {
	pol := domain.DefaultForecastPolicy()
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	bundle := Project(dec("100"), dec("80"), flatProfile(), pol, monthStart)

	if len(bundle.Projections) != 3 {
		t.Fatalf("projections = %d, want 3", len(bundle.Projections))
	}
	wantMonths := []string{"Sep 2025", "Oct 2025", "Nov 2025"}
	wantConfidence := []int{85, 77, 69}
	for i, p := range bundle.Projections {
		if p.Month != wantMonths[i] {
			t.Errorf("month[%d] = %q, want %q", i, p.Month, wantMonths[i])
		}
		if !p.NetFlow.Equal(dec("20")) {
			t.Errorf("net[%d] = %s, want 20", i, p.NetFlow)
		}
		if !p.NetFlow.Equal(p.ProjectedIncome.Sub(p.ProjectedExpense)) {
			t.Errorf("net[%d] must equal income minus expense", i)
		}
		if p.Confidence != wantConfidence[i] {
			t.Errorf("confidence[%d] = %d, want %d", i, p.Confidence, wantConfidence[i])
		}
		if p.Alert != "" {
			t.Errorf("alert[%d] = %q, want none (net 20 clears the 10 threshold)", i, p.Alert)
		}
	}

	if !bundle.KPIs.NetFlow3M.Equal(dec("60")) {
		t.Errorf("NetFlow3M = %s, want 60", bundle.KPIs.NetFlow3M)
	}
	if bundle.KPIs.RiskMonths != 0 {
		t.Errorf("RiskMonths = %d, want 0", bundle.KPIs.RiskMonths)
	}
	if bundle.Risk.Level != "low" {
		t.Errorf("Risk.Level = %q, want low", bundle.Risk.Level)
	}
}

func TestProject_LiquidityRisk(t *testing.T) {
	pol := domain.DefaultForecastPolicy()
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	bundle := Project(dec("100"), dec("120"), flatProfile(), pol, monthStart)

	for i, p := range bundle.Projections {
		if p.Alert != domain.ForecastLiquidityRisk {
			t.Errorf("alert[%d] = %q, want liquidity_risk", i, p.Alert)
		}
	}
	if bundle.Risk.Level != "high" {
		t.Errorf("Risk.Level = %q, want high with three flagged months", bundle.Risk.Level)
	}
	if bundle.KPIs.RiskMonths != 3 {
		t.Errorf("RiskMonths = %d, want 3", bundle.KPIs.RiskMonths)
	}
}

func TestProject_TightMargin(t *testing.T) {
	pol := domain.DefaultForecastPolicy()
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	// Net 5 on average income 100: positive but under the 10% band.
	bundle := Project(dec("100"), dec("95"), flatProfile(), pol, monthStart)

	for i, p := range bundle.Projections {
		if p.Alert != domain.ForecastTightMargin {
			t.Errorf("alert[%d] = %q, want tight_margin", i, p.Alert)
		}
	}
	if len(bundle.Risk.Factors) != 3 {
		t.Errorf("Risk.Factors = %d entries, want 3", len(bundle.Risk.Factors))
	}
}

func TestProject_StableProfileGrowth(t *testing.T) {
	pol := domain.DefaultForecastPolicy()
	monthStart := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	bundle := Project(dec("100000"), dec("60000"), pol.ProfileFor(domain.ClassStable), pol, monthStart)

	// stable: income ×1.02/1.05/1.08, expense ×0.98/1.01/0.99,
	// projections rounded to whole pesos.
	if !bundle.Projections[0].ProjectedIncome.Equal(dec("102000")) {
		t.Errorf("income[0] = %s, want 102000", bundle.Projections[0].ProjectedIncome)
	}
	if !bundle.Projections[2].ProjectedExpense.Equal(dec("59400")) {
		t.Errorf("expense[2] = %s, want 59400", bundle.Projections[2].ProjectedExpense)
	}
	if bundle.KPIs.IncomeTrend != "increasing" {
		t.Errorf("IncomeTrend = %q, want increasing", bundle.KPIs.IncomeTrend)
	}
	if bundle.KPIs.ExpenseTrend != "decreasing" {
		t.Errorf("ExpenseTrend = %q, want decreasing", bundle.KPIs.ExpenseTrend)
	}
}

func TestGetForecast_EmptyLedger(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	bundle, err := svc.GetForecast(context.Background(), testCompanyID, testNow)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if len(bundle.Projections) != 3 {
		t.Fatalf("projections = %d, want 3", len(bundle.Projections))
	}
	for i, p := range bundle.Projections {
		if !p.NetFlow.IsZero() {
			t.Errorf("net[%d] = %s, want 0 on empty ledger", i, p.NetFlow)
		}
		if p.Alert != "" {
			t.Errorf("alert[%d] = %q, want none (zero net never undercuts a zero threshold)", i, p.Alert)
		}
	}
	if bundle.CompanyName != "Comercializadora de Prueba" {
		t.Errorf("CompanyName = %q", bundle.CompanyName)
	}
	if len(bundle.Seasonality) != 12 {
		t.Errorf("Seasonality = %d months, want 12", len(bundle.Seasonality))
	}
}

func TestGetForecast_UsesTrailingAverages(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	// Six trailing months (Feb..Jul relative to testNow) with constant
	// flows; the current month must not enter the baseline.
	for i := 1; i <= 6; i++ {
		issued := testNow.AddDate(0, -i, 0)
		store.AddInvoices(
			testInvoice("in-"+issued.Format("2006-01"), domain.KindIncome, "120000", issued),
			testInvoice("out-"+issued.Format("2006-01"), domain.KindExpense, "90000", issued),
		)
	}
	store.AddInvoices(testInvoice("in-current", domain.KindIncome, "999999", testNow))

	svc := newTestService(store)
	bundle, err := svc.GetForecast(context.Background(), testCompanyID, testNow)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}

	// stable profile first month: 120000 × 1.02 = 122400.
	if !bundle.Projections[0].ProjectedIncome.Equal(dec("122400")) {
		t.Errorf("income[0] = %s, want 122400", bundle.Projections[0].ProjectedIncome)
	}
	if !bundle.Projections[0].ProjectedExpense.Equal(dec("88200")) {
		t.Errorf("expense[0] = %s, want 88200 (90000 × 0.98)", bundle.Projections[0].ProjectedExpense)
	}
}
