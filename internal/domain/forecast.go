package domain

import "github.com/shopspring/decimal"

// ============================================================
// Cash-flow forecast
// ============================================================

// ForecastAlert flags a risky projected month.
type ForecastAlert string

const (
	ForecastLiquidityRisk ForecastAlert = "liquidity_risk" // net < 0
	ForecastTightMargin   ForecastAlert = "tight_margin"   // 0 ≤ net < 10% avg income
)

// ForecastMonth is one projected month. NetFlow is always
// ProjectedIncome − ProjectedExpense.
type ForecastMonth struct {
	Month            string          `json:"month"` // e.g. "Mar 2026"
	ProjectedIncome  decimal.Decimal `json:"projected_income"`
	ProjectedExpense decimal.Decimal `json:"projected_expense"`
	NetFlow          decimal.Decimal `json:"net_flow"`
	Alert            ForecastAlert   `json:"alert,omitempty"`
	Confidence       int             `json:"confidence"` // decays per forward month
}

// ForecastKPIs aggregates the projection horizon.
type ForecastKPIs struct {
	Income3M     decimal.Decimal `json:"income_3m"`
	Expense3M    decimal.Decimal `json:"expense_3m"`
	NetFlow3M    decimal.Decimal `json:"net_flow_3m"`
	RiskMonths   int             `json:"risk_months"`
	IncomeTrend  string          `json:"income_trend"`  // increasing | decreasing
	ExpenseTrend string          `json:"expense_trend"` // increasing | decreasing
}

// SeasonalityMonth is one entry of the static seasonality reference
// table; it is display data, not derived from the ledger.
type SeasonalityMonth struct {
	Month  string  `json:"month"`
	Factor float64 `json:"factor"`
	Note   string  `json:"note"`
}

// RiskAssessment summarizes the projection's risk posture.
type RiskAssessment struct {
	Level   string   `json:"level"` // low | medium | high
	Factors []string `json:"factors"`
}

// ForecastBundle is the full 3-month projection response.
type ForecastBundle struct {
	Projections []ForecastMonth    `json:"projections"`
	KPIs        ForecastKPIs       `json:"kpis"`
	Seasonality []SeasonalityMonth `json:"seasonality"`
	Risk        RiskAssessment     `json:"risk_assessment"`
	CompanyName string             `json:"company_name"`
}
