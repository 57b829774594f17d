package domain

// Policy tables for scoring, risk classification, forecasting and
// credit readiness. Everything here is explicit, injectable
// configuration: services receive a Policy in their constructor and
// tests substitute alternate tables freely.

// ScoreWeights are the component weights of the health score, in
// percent. They must sum to 100.
type ScoreWeights struct {
	Liquidity             int
	FiscalCompliance      int
	ClientDiversification int
	RevenueTrend          int
	OperatingMargin       int
	Seasonality           int
	ReceivablesAging      int
	SupplierRisk          int
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() int {
	return w.Liquidity + w.FiscalCompliance + w.ClientDiversification +
		w.RevenueTrend + w.OperatingMargin + w.Seasonality +
		w.ReceivablesAging + w.SupplierRisk
}

// WeightedTotal folds a snapshot's components into the rounded 0-100
// total score.
func WeightedTotal(snap *HealthScoreSnapshot, w ScoreWeights) int {
	sum := snap.Liquidity*w.Liquidity +
		snap.FiscalCompliance*w.FiscalCompliance +
		snap.ClientDiversification*w.ClientDiversification +
		snap.RevenueTrend*w.RevenueTrend +
		snap.OperatingMargin*w.OperatingMargin +
		snap.Seasonality*w.Seasonality +
		snap.ReceivablesAging*w.ReceivablesAging +
		snap.SupplierRisk*w.SupplierRisk
	return (sum + 50) / 100
}

// DefaultScoreWeights returns the standard 20/20/15/15/10/10/5/5 table.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Liquidity:             20,
		FiscalCompliance:      20,
		ClientDiversification: 15,
		RevenueTrend:          15,
		OperatingMargin:       10,
		Seasonality:           10,
		ReceivablesAging:      5,
		SupplierRisk:          5,
	}
}

// SemaphorePolicy holds the classification thresholds for generated
// risk signals. Boundaries are inclusive on the worse side: a client
// concentration of exactly 20.0% classifies yellow, 32.0% red.
type SemaphorePolicy struct {
	ConcentrationYellowPct float64
	ConcentrationRedPct    float64
	CancellationYellowPct  float64
	CancellationRedPct     float64
}

// DefaultSemaphorePolicy returns the documented thresholds:
// concentration <20 green / 20–32 yellow / else red,
// cancellations <1 green / 1–5 yellow / >5 red.
func DefaultSemaphorePolicy() SemaphorePolicy {
	return SemaphorePolicy{
		ConcentrationYellowPct: 20,
		ConcentrationRedPct:    32,
		CancellationYellowPct:  1,
		CancellationRedPct:     5,
	}
}

// ClassifyConcentration maps a top-client income share (percent)
// to a severity.
func (p SemaphorePolicy) ClassifyConcentration(sharePct float64) Severity {
	switch {
	case sharePct >= p.ConcentrationRedPct:
		return SeverityRed
	case sharePct >= p.ConcentrationYellowPct:
		return SeverityYellow
	default:
		return SeverityGreen
	}
}

// ClassifyCancellation maps a cancellation rate (percent) to a severity.
func (p SemaphorePolicy) ClassifyCancellation(ratePct float64) Severity {
	switch {
	case ratePct > p.CancellationRedPct:
		return SeverityRed
	case ratePct >= p.CancellationYellowPct:
		return SeverityYellow
	default:
		return SeverityGreen
	}
}

// GrowthProfile is a named scenario: three forward months of
// independent income and expense growth multipliers.
type GrowthProfile struct {
	Income  [3]float64
	Expense [3]float64
}

// ForecastPolicy drives the cash-flow projection.
type ForecastPolicy struct {
	// Profiles by company classification tag.
	Profiles       map[string]GrowthProfile
	DefaultProfile string

	TrailingMonths  int
	ConfidenceStart int
	ConfidenceStep  int
	// TightMarginRatio: net below this fraction of average income
	// flags a tight-margin month.
	TightMarginRatio float64
}

// DefaultForecastPolicy returns the calibrated demo policy: growth
// triples per classification, 6 trailing months, confidence starting
// at 85 and decaying by 8 per forward month.
func DefaultForecastPolicy() ForecastPolicy {
	return ForecastPolicy{
		Profiles: map[string]GrowthProfile{
			ClassStable: {Income: [3]float64{1.02, 1.05, 1.08}, Expense: [3]float64{0.98, 1.01, 0.99}},
			ClassAtRisk: {Income: [3]float64{0.95, 0.88, 1.15}, Expense: [3]float64{1.08, 1.15, 1.02}},
			ClassMixed:  {Income: [3]float64{1.01, 1.03, 1.02}, Expense: [3]float64{1.00, 1.02, 0.98}},
		},
		DefaultProfile:   ClassMixed,
		TrailingMonths:   6,
		ConfidenceStart:  85,
		ConfidenceStep:   8,
		TightMarginRatio: 0.1,
	}
}

// ProfileFor resolves the growth profile for a classification tag,
// falling back to the default profile.
func (p ForecastPolicy) ProfileFor(classification string) GrowthProfile {
	if prof, ok := p.Profiles[classification]; ok {
		return prof
	}
	return p.Profiles[p.DefaultProfile]
}

// DefaultSeasonality returns the static 12-month seasonality
// reference table exposed alongside forecasts.
func DefaultSeasonality() []SeasonalityMonth {
	return []SeasonalityMonth{
		{Month: "Jan", Factor: 0.85, Note: "Slow post-holiday start"},
		{Month: "Feb", Factor: 0.92, Note: "Gradual recovery"},
		{Month: "Mar", Factor: 1.05, Note: "Q1 close, seasonal peak"},
		{Month: "Apr", Factor: 0.95, Note: "Annual filing, extra outflows"},
		{Month: "May", Factor: 1.02, Note: "Stabilization"},
		{Month: "Jun", Factor: 1.08, Note: "Q2 close, strong demand"},
		{Month: "Jul", Factor: 0.90, Note: "Vacation dip"},
		{Month: "Aug", Factor: 0.95, Note: "Slow recovery"},
		{Month: "Sep", Factor: 1.10, Note: "Q3 close, strong"},
		{Month: "Oct", Factor: 1.05, Note: "Pre-fiscal-close push"},
		{Month: "Nov", Factor: 1.15, Note: "Seasonal sales peak"},
		{Month: "Dec", Factor: 1.20, Note: "Fiscal close, yearly high"},
	}
}

// CreditPolicy holds the readiness bands, offer catalog and partner
// tiers of the credit view.
type CreditPolicy struct {
	HighScore   int // readiness high at or above
	MediumScore int // readiness medium at or above

	HighIndex   int
	MediumIndex int
	LowIndex    int

	HighRecommendation   string
	MediumRecommendation string
	LowRecommendation    string

	Offers []FinancingOffer

	// Partner tier document-count thresholds (strictly greater-than).
	TopTierDocs int
	MidTierDocs int
	Tiers       []PartnerTier
	Plans       []SubscriptionPlan
}

// DefaultCreditPolicy returns the fixed credit catalog.
func DefaultCreditPolicy() CreditPolicy {
	return CreditPolicy{
		HighScore:   80,
		MediumScore: 65,
		HighIndex:   92,
		MediumIndex: 68,
		LowIndex:    45,

		HighRecommendation:   "Excellent credit profile. Pre-approved for credit lines.",
		MediumRecommendation: "Good profile. Improve client diversification to unlock better rates.",
		LowRecommendation:    "Financial health needs improvement before applying for credit.",

		Offers: []FinancingOffer{
			{
				Name:           "SME Simple Credit",
				Provider:       "Konfío",
				MinAmount:      50000,
				MaxAmount:      3000000,
				Rate:           "1.8% monthly",
				Term:           "6-36 months",
				Requirements:   []string{"Score >= 65", "6+ months operating", "No blacklist alerts"},
				MinScore:       65,
				PartnerBenefit: "15% commission on granted amount",
			},
			{
				Name:           "Digital Factoring",
				Provider:       "Kapital",
				MinAmount:      10000,
				MaxAmount:      500000,
				Rate:           "2.2% per operation",
				Term:           "30-90 days",
				Requirements:   []string{"Score >= 50", "Valid invoices", "Verified clients"},
				MinScore:       50,
				PartnerBenefit: "10% commission",
			},
			{
				Name:           "Revolving Credit Line",
				Provider:       "Credijusto",
				MinAmount:      100000,
				MaxAmount:      5000000,
				Rate:           "1.5% monthly",
				Term:           "12 months renewable",
				Requirements:   []string{"Score >= 75", "12+ months operating", "Revenue > $200K/month"},
				MinScore:       75,
				PartnerBenefit: "20% commission",
			},
		},

		TopTierDocs: 1000,
		MidTierDocs: 500,
		Tiers: []PartnerTier{
			{
				Name:               "Bronze",
				Requirement:        "5+ managed clients",
				Discount:           "10%",
				ReferralCommission: "5%",
				Benefits: []string{
					"Basic dashboard for every client",
					"Consolidated monthly reports",
					"Email support",
				},
			},
			{
				Name:               "Silver",
				Requirement:        "15+ managed clients",
				Discount:           "20%",
				ReferralCommission: "10%",
				Benefits: []string{
					"Everything in Bronze",
					"Proactive alerts",
					"Priority support",
				},
			},
			{
				Name:               "Gold",
				Requirement:        "25+ managed clients",
				Discount:           "30%",
				ReferralCommission: "15%",
				Benefits: []string{
					"Everything in Silver",
					"Advanced cash-flow projections",
					"Full API access",
					"Dedicated 24/7 support",
				},
			},
		},
		Plans: []SubscriptionPlan{
			{
				Name:       "Starter",
				Price:      0,
				PriceLabel: "Free",
				Features: []string{
					"Basic dashboard",
					"Up to 100 invoices/month",
					"Health score",
					"1 user",
				},
			},
			{
				Name:       "Professional",
				Price:      499,
				PriceLabel: "$499/month",
				Popular:    true,
				Features: []string{
					"Everything in Starter",
					"Full fiscal semaphore",
					"Proactive alerts",
					"5 users",
					"Up to 1,000 invoices/month",
				},
			},
			{
				Name:       "Advanced",
				Price:      1499,
				PriceLabel: "$1,499/month",
				Features: []string{
					"Everything in Professional",
					"Cash-flow projections",
					"Full API access",
					"Unlimited users and invoices",
					"Priority support",
				},
			},
		},
	}
}

// DefaultIncomeCategories is the static income-by-category reference
// chart shown on the dashboard.
func DefaultIncomeCategories() []CategoryShare {
	return []CategoryShare{
		{Name: "Professional services", Value: 42, Color: "#10b981"},
		{Name: "Products", Value: 28, Color: "#06b6d4"},
		{Name: "Consulting", Value: 18, Color: "#8b5cf6"},
		{Name: "Other", Value: 12, Color: "#f59e0b"},
	}
}

// Policy bundles every table the services need.
type Policy struct {
	Weights     ScoreWeights
	Semaphore   SemaphorePolicy
	Forecast    ForecastPolicy
	Credit      CreditPolicy
	Seasonality []SeasonalityMonth
	Categories  []CategoryShare
}

// DefaultPolicy returns the full default policy set.
func DefaultPolicy() Policy {
	return Policy{
		Weights:     DefaultScoreWeights(),
		Semaphore:   DefaultSemaphorePolicy(),
		Forecast:    DefaultForecastPolicy(),
		Credit:      DefaultCreditPolicy(),
		Seasonality: DefaultSeasonality(),
		Categories:  DefaultIncomeCategories(),
	}
}
