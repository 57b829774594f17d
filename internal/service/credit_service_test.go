package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
)

func TestClassify_Bands(t *testing.T) {
	pol := domain.DefaultCreditPolicy()

	tests := []struct {
		score     int
		wantLevel string
		wantIndex int
	}{
		{100, "high", 92},
		{80, "high", 92},
		{79, "medium", 68},
		{65, "medium", 68},
		{64, "low", 45},
		{0, "low", 45},
	}
	for _, tc := range tests {
		got := Classify(tc.score, pol)
		if got.Level != tc.wantLevel || got.ReadinessScore != tc.wantIndex {
			t.Errorf("Classify(%d) = %s/%d, want %s/%d",
				tc.score, got.Level, got.ReadinessScore, tc.wantLevel, tc.wantIndex)
		}
		if got.HealthScore != tc.score {
			t.Errorf("Classify(%d) should echo the health score, got %d", tc.score, got.HealthScore)
		}
	}
}

func TestEvaluateOffers(t *testing.T) {
	catalog := domain.DefaultCreditPolicy().Offers

	byProvider := func(offers []domain.FinancingOffer) map[string]string {
		m := map[string]string{}
		for _, o := range offers {
			m[o.Provider] = o.Status
		}
		return m
	}

	// Score 70: clears Kapital (50) by 20, Konfío (65) by 5, misses
	// Credijusto (75).
	got := byProvider(evaluateOffers(70, catalog))
	if got["Kapital"] != "pre_approved" {
		t.Errorf("Kapital at 70 = %s, want pre_approved", got["Kapital"])
	}
	if got["Konfío"] != "available" {
		t.Errorf("Konfío at 70 = %s, want available", got["Konfío"])
	}
	if got["Credijusto"] != "not_available" {
		t.Errorf("Credijusto at 70 = %s, want not_available", got["Credijusto"])
	}

	got = byProvider(evaluateOffers(90, catalog))
	for provider, status := range got {
		if status != "pre_approved" {
			t.Errorf("%s at 90 = %s, want pre_approved", provider, status)
		}
	}

	// The catalog itself must stay untouched.
	for _, o := range catalog {
		if o.Status != "" {
			t.Errorf("catalog mutated: %s has status %q", o.Provider, o.Status)
		}
	}
}

func TestPartnerTier_Boundaries(t *testing.T) {
	pol := domain.DefaultCreditPolicy()

	tests := []struct {
		docs int
		want string
	}{
		{0, "Bronze"},
		{500, "Bronze"},
		{501, "Silver"},
		{1000, "Silver"},
		{1001, "Gold"},
	}
	for _, tc := range tests {
		if got := partnerTier(tc.docs, pol); got != tc.want {
			t.Errorf("partnerTier(%d) = %s, want %s", tc.docs, got, tc.want)
		}
	}
}

func TestGetCredit_NoScoreIsNotFound(t *testing.T) {
	store := memory.NewStore()
	store.AddCompany(newTestCompany())

	svc := newTestService(store)
	_, err := svc.GetCredit(context.Background(), testCompanyID)

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCredit_FullBundle(t *testing.T) {
	store := memory.NewStore()
	company := newTestCompany()
	company.SyncConnected = true
	store.AddCompany(company)

	snap := &domain.HealthScoreSnapshot{ID: "snap-1", CompanyID: testCompanyID, Total: 84, CreatedAt: testNow}
	if err := store.InsertScore(context.Background(), snap); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	for i := 0; i < 12; i++ {
		store.AddInvoices(testInvoice(fmt.Sprintf("inv-%d", i), domain.KindIncome, "100", testNow))
	}

	svc := newTestService(store)
	bundle, err := svc.GetCredit(context.Background(), testCompanyID)
	if err != nil {
		t.Fatalf("GetCredit: %v", err)
	}

	if bundle.Readiness.Level != "high" {
		t.Errorf("Level = %s, want high at score 84", bundle.Readiness.Level)
	}
	if bundle.CurrentTier != "Bronze" {
		t.Errorf("CurrentTier = %s, want Bronze at 12 documents", bundle.CurrentTier)
	}
	if len(bundle.FinancingOptions) != 3 {
		t.Errorf("FinancingOptions = %d, want 3", len(bundle.FinancingOptions))
	}
	if len(bundle.Plans) == 0 || !bundle.Plans[0].Current {
		t.Errorf("first plan should be the current one: %+v", bundle.Plans)
	}
	if bundle.CompanyName != company.LegalName {
		t.Errorf("CompanyName = %q", bundle.CompanyName)
	}

	steps := bundle.OnboardingSteps
	if len(steps) != 4 {
		t.Fatalf("OnboardingSteps = %d, want 4", len(steps))
	}
	if !steps[0].Done {
		t.Errorf("sync step should be done for a connected company")
	}
	if !steps[2].Done {
		t.Errorf("alerts step should be done with zero pending alerts")
	}
	if steps[3].Done {
		t.Errorf("financing step is never pre-completed")
	}
}
