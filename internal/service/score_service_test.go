package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
)

func TestGetHealthScore_NoSnapshot(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	_, err := svc.GetHealthScore(context.Background(), testCompanyID)

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if nf.Resource != "health score" {
		t.Errorf("Resource = %q, want %q", nf.Resource, "health score")
	}
}

func TestGetHealthScore_Breakdown(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	snap := &domain.HealthScoreSnapshot{
		ID:        "snap-1",
		CompanyID: testCompanyID,
		Liquidity: 88, FiscalCompliance: 95, ClientDiversification: 40,
		RevenueTrend: 70, OperatingMargin: 60, Seasonality: 75,
		ReceivablesAging: 80, SupplierRisk: 65,
		CreatedAt: testNow,
	}
	snap.Total = domain.WeightedTotal(snap, domain.DefaultScoreWeights())
	if err := store.InsertScore(context.Background(), snap); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}

	svc := newTestService(store)
	breakdown, err := svc.GetHealthScore(context.Background(), testCompanyID)
	if err != nil {
		t.Fatalf("GetHealthScore: %v", err)
	}

	if breakdown.Total != snap.Total {
		t.Errorf("Total = %d, want %d", breakdown.Total, snap.Total)
	}
	if len(breakdown.Components) != 8 {
		t.Fatalf("breakdown has %d components, want 8", len(breakdown.Components))
	}
	if breakdown.Strongest != "Cumplimiento fiscal" {
		t.Errorf("Strongest = %q, want %q", breakdown.Strongest, "Cumplimiento fiscal")
	}
	if breakdown.Weakest != "Diversificación de clientes" {
		t.Errorf("Weakest = %q, want %q", breakdown.Weakest, "Diversificación de clientes")
	}
	if breakdown.Components[0].Weight != "20%" {
		t.Errorf("first component weight = %q, want 20%%", breakdown.Components[0].Weight)
	}
}

func TestGetHealthScore_ServesLatestSnapshot(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	old := &domain.HealthScoreSnapshot{ID: "snap-1", CompanyID: testCompanyID, Total: 40, CreatedAt: testNow.AddDate(0, -1, 0)}
	recent := &domain.HealthScoreSnapshot{ID: "snap-2", CompanyID: testCompanyID, Total: 72, CreatedAt: testNow}
	if err := store.InsertScore(context.Background(), old); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	if err := store.InsertScore(context.Background(), recent); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}

	svc := newTestService(store)
	breakdown, err := svc.GetHealthScore(context.Background(), testCompanyID)
	if err != nil {
		t.Fatalf("GetHealthScore: %v", err)
	}
	if breakdown.Total != 72 {
		t.Errorf("Total = %d, want the latest snapshot's 72", breakdown.Total)
	}
}

func TestRecomputeScore_SteadyLedger(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	// Six identical months: income 100k from one client, expense 50k
	// to one supplier. Every component is then fully determined.
	for i := 0; i < 6; i++ {
		issued := testNow.AddDate(0, -i, 0)
		store.AddInvoices(
			testInvoice(fmt.Sprintf("in-%d", i), domain.KindIncome, "100000", issued),
			testInvoice(fmt.Sprintf("out-%d", i), domain.KindExpense, "50000", issued),
		)
	}

	svc := newTestService(store)
	breakdown, err := svc.RecomputeScore(context.Background(), testCompanyID, testNow)
	if err != nil {
		t.Fatalf("RecomputeScore: %v", err)
	}

	// liquidity 100 (ratio 2.0), compliance 100 (no voids), margin 100
	// (50%), trend 50 (flat), seasonality 100 (no dispersion),
	// receivables 100 (no PPD), both concentrations 0 (single
	// counterparty). Weighted: (2000+2000+0+750+1000+1000+500+0+50)/100.
	if breakdown.Total != 73 {
		t.Errorf("Total = %d, want 73", breakdown.Total)
	}

	snap, err := store.LatestScore(context.Background(), testCompanyID)
	if err != nil {
		t.Fatalf("LatestScore: %v", err)
	}
	if snap == nil || snap.Total != breakdown.Total {
		t.Errorf("recomputed snapshot not persisted: %+v", snap)
	}
	if snap.Liquidity != 100 || snap.ClientDiversification != 0 || snap.RevenueTrend != 50 {
		t.Errorf("unexpected components: %+v", snap)
	}
}

func TestRecomputeScore_EmptyLedgerDefaults(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	breakdown, err := svc.RecomputeScore(context.Background(), testCompanyID, testNow)
	if err != nil {
		t.Fatalf("RecomputeScore: %v", err)
	}

	// No data: neutral 50 everywhere except margin, which cannot be
	// positive without income.
	snap, _ := store.LatestScore(context.Background(), testCompanyID)
	if snap.Liquidity != 50 || snap.FiscalCompliance != 50 || snap.RevenueTrend != 50 {
		t.Errorf("expected neutral components on empty ledger: %+v", snap)
	}
	if snap.OperatingMargin != 0 {
		t.Errorf("OperatingMargin = %d, want 0 on empty ledger", snap.OperatingMargin)
	}
	if breakdown.Total != snap.Total {
		t.Errorf("breakdown total %d != snapshot total %d", breakdown.Total, snap.Total)
	}
}

func TestComponentHeuristics(t *testing.T) {
	t.Run("liquidity", func(t *testing.T) {
		if got := liquidityComponent(decimal.Zero, decimal.Zero); got != 50 {
			t.Errorf("no activity = %d, want 50", got)
		}
		if got := liquidityComponent(dec("100"), decimal.Zero); got != 100 {
			t.Errorf("income only = %d, want 100", got)
		}
		if got := liquidityComponent(dec("100"), dec("100")); got != 60 {
			t.Errorf("ratio 1.0 = %d, want 60", got)
		}
	})

	t.Run("compliance", func(t *testing.T) {
		if got := complianceComponent(98, 2); got != 80 {
			t.Errorf("2%% cancel rate = %d, want 80", got)
		}
		if got := complianceComponent(0, 10); got != 0 {
			t.Errorf("all voided = %d, want 0", got)
		}
	})

	t.Run("concentration", func(t *testing.T) {
		top := []domain.CounterpartyTotal{{TaxID: "CLI1", Total: dec("30")}}
		if got := concentrationComponent(top, dec("100")); got != 50 {
			t.Errorf("30%% share = %d, want 50", got)
		}
		if got := concentrationComponent(nil, dec("100")); got != 50 {
			t.Errorf("no counterparties = %d, want 50", got)
		}
	})

	t.Run("trend", func(t *testing.T) {
		flat := []decimal.Decimal{dec("10"), dec("10"), dec("10"), dec("10"), dec("10"), dec("10")}
		if got := trendComponent(flat); got != 50 {
			t.Errorf("flat = %d, want 50", got)
		}
		rising := []decimal.Decimal{decimal.Zero, decimal.Zero, decimal.Zero, dec("10"), dec("10"), dec("10")}
		if got := trendComponent(rising); got != 75 {
			t.Errorf("from zero = %d, want 75", got)
		}
	})

	t.Run("receivables", func(t *testing.T) {
		if got := receivablesComponent(100, 25); got != 75 {
			t.Errorf("25%% deferred = %d, want 75", got)
		}
		if got := receivablesComponent(0, 0); got != 50 {
			t.Errorf("no documents = %d, want 50", got)
		}
	})
}
