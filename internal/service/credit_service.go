package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// ============================================================
// Credit readiness
// ============================================================

// GetCredit maps the company's latest health score into a readiness
// tier with matching financing eligibility, partner tier and
// onboarding state.
func (s *InsightsService) GetCredit(ctx context.Context, companyID string) (*domain.CreditBundle, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.GetCredit")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	snap, err := s.insights.LatestScore(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &domain.ErrNotFound{Resource: "health score", ID: companyID}
	}

	docCount, err := s.ledger.CountInvoices(ctx, port.LedgerFilter{CompanyID: companyID})
	if err != nil {
		return nil, err
	}

	pendingAlerts, err := s.insights.CountPendingAlerts(ctx, companyID)
	if err != nil {
		return nil, err
	}

	pol := s.policy.Credit
	readiness := Classify(snap.Total, pol)

	bundle := &domain.CreditBundle{
		Readiness:        readiness,
		FinancingOptions: evaluateOffers(snap.Total, pol.Offers),
		PartnerTiers:     pol.Tiers,
		CurrentTier:      partnerTier(docCount, pol),
		Plans:            currentPlans(pol.Plans),
		OnboardingSteps:  onboardingSteps(company.SyncConnected, pendingAlerts),
		CompanyName:      company.LegalName,
	}
	return bundle, nil
}

// Classify is the pure tier mapping: score to readiness band.
// Boundaries are inclusive: 80 is high, 65 is medium.
func Classify(healthScore int, pol domain.CreditPolicy) domain.CreditReadiness {
	switch {
	case healthScore >= pol.HighScore:
		return domain.CreditReadiness{
			Level:          "high",
			ReadinessScore: pol.HighIndex,
			Recommendation: pol.HighRecommendation,
			HealthScore:    healthScore,
		}
	case healthScore >= pol.MediumScore:
		return domain.CreditReadiness{
			Level:          "medium",
			ReadinessScore: pol.MediumIndex,
			Recommendation: pol.MediumRecommendation,
			HealthScore:    healthScore,
		}
	default:
		return domain.CreditReadiness{
			Level:          "low",
			ReadinessScore: pol.LowIndex,
			Recommendation: pol.LowRecommendation,
			HealthScore:    healthScore,
		}
	}
}

// evaluateOffers checks the score against each offer's threshold.
// Clearing the threshold by 10+ points upgrades to pre-approved.
func evaluateOffers(healthScore int, catalog []domain.FinancingOffer) []domain.FinancingOffer {
	offers := make([]domain.FinancingOffer, len(catalog))
	copy(offers, catalog)
	for i := range offers {
		switch {
		case healthScore >= offers[i].MinScore+10:
			offers[i].Status = "pre_approved"
		case healthScore >= offers[i].MinScore:
			offers[i].Status = "available"
		default:
			offers[i].Status = "not_available"
		}
	}
	return offers
}

// partnerTier maps a document count to a partner tier name. The
// thresholds are strict greater-than.
func partnerTier(docCount int, pol domain.CreditPolicy) string {
	n := len(pol.Tiers)
	if n == 0 {
		return ""
	}
	switch {
	case docCount > pol.TopTierDocs:
		return pol.Tiers[n-1].Name
	case docCount > pol.MidTierDocs && n > 1:
		return pol.Tiers[n-2].Name
	default:
		return pol.Tiers[0].Name
	}
}

func currentPlans(catalog []domain.SubscriptionPlan) []domain.SubscriptionPlan {
	plans := make([]domain.SubscriptionPlan, len(catalog))
	copy(plans, catalog)
	if len(plans) > 0 {
		plans[0].Current = true
	}
	return plans
}

func onboardingSteps(syncConnected bool, pendingAlerts int) []domain.OnboardingStep {
	return []domain.OnboardingStep{
		{Step: 1, Title: "Conecta tu facturación", Description: "Vincula tu emisor de CFDI para sincronizar facturas.", Done: syncConnected},
		{Step: 2, Title: "Revisa tu score de salud", Description: "Conoce los ocho componentes de tu calificación.", Done: true},
		{Step: 3, Title: "Atiende tus alertas fiscales", Description: "Resuelve las alertas pendientes del semáforo.", Done: pendingAlerts == 0},
		{Step: 4, Title: "Solicita financiamiento", Description: "Compara ofertas según tu nivel de preparación.", Done: false},
	}
}
