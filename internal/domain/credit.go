package domain

// ============================================================
// Credit readiness
// ============================================================

// CreditReadiness bands a health score into a financing posture.
type CreditReadiness struct {
	Level          string `json:"level"` // high | medium | low
	ReadinessScore int    `json:"readiness_score"`
	Recommendation string `json:"recommendation"`
	HealthScore    int    `json:"health_score"`
}

// FinancingOffer is one entry of the fixed financing catalog.
// Eligibility is a plain score threshold check.
type FinancingOffer struct {
	Name           string   `json:"name"`
	Provider       string   `json:"provider"`
	MinAmount      int64    `json:"min_amount"`
	MaxAmount      int64    `json:"max_amount"`
	Rate           string   `json:"rate"`
	Term           string   `json:"term"`
	Requirements   []string `json:"requirements"`
	MinScore       int      `json:"-"`
	Status         string   `json:"status"` // pre_approved | available | not_available
	PartnerBenefit string   `json:"partner_benefit,omitempty"`
}

// PartnerTier is one level of the partner program.
type PartnerTier struct {
	Name               string   `json:"name"`
	Requirement        string   `json:"requirement"`
	Discount           string   `json:"discount"`
	ReferralCommission string   `json:"referral_commission"`
	Benefits           []string `json:"benefits"`
}

// SubscriptionPlan is one subscription option shown in the credit view.
type SubscriptionPlan struct {
	Name       string   `json:"name"`
	Price      int      `json:"price"`
	PriceLabel string   `json:"price_label"`
	Features   []string `json:"features"`
	Current    bool     `json:"current"`
	Popular    bool     `json:"popular,omitempty"`
}

// OnboardingStep is one step of the activation checklist.
type OnboardingStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// CreditBundle is the full credit-readiness response.
type CreditBundle struct {
	Readiness        CreditReadiness    `json:"readiness"`
	FinancingOptions []FinancingOffer   `json:"financing_options"`
	PartnerTiers     []PartnerTier      `json:"partner_tiers"`
	CurrentTier      string             `json:"current_tier"`
	Plans            []SubscriptionPlan `json:"plans"`
	OnboardingSteps  []OnboardingStep   `json:"onboarding_steps"`
	CompanyName      string             `json:"company_name"`
}
