package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Dashboard analytics
// ============================================================

// Trend is a directional indicator for a ranked counterparty,
// derived from the period-over-period delta of its totals.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendUnknown Trend = "unknown"
)

// MonthlyFlow is one point of the income/expense series.
type MonthlyFlow struct {
	Month   string          `json:"month"` // e.g. "Jan"
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CounterpartyTotal is a group-by row from the ledger: one
// counterparty with its summed total and document count.
type CounterpartyTotal struct {
	TaxID string          `json:"tax_id"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// RankedCounterparty is a top-N entry served to the dashboard.
type RankedCounterparty struct {
	Name     string          `json:"name"`
	TaxID    string          `json:"tax_id"`
	Total    decimal.Decimal `json:"total"`
	Invoices int             `json:"invoices"`
	Trend    Trend           `json:"trend"`
}

// BalancePoint is one sample of the intra-month balance curve.
// The curve is derived display data, not ledger state.
type BalancePoint struct {
	Day     string          `json:"day"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryShare is a slice of the income-by-category reference chart.
type CategoryShare struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// DashboardStats is the KPI bundle for one company at one reference
// instant. All monetary fields are exact decimals; percentage fields
// are rounded to one decimal place for display.
type DashboardStats struct {
	MonthIncome  decimal.Decimal `json:"month_income"`
	MonthExpense decimal.Decimal `json:"month_expense"`

	GrossMarginPct      float64 `json:"gross_margin_pct"`
	IncomeVariationPct  float64 `json:"income_variation_pct"`
	ExpenseVariationPct float64 `json:"expense_variation_pct"`

	HealthScore int `json:"health_score"`

	Revenue          []MonthlyFlow        `json:"revenue"`
	CashFlow         []BalancePoint       `json:"cash_flow"`
	TopClients       []RankedCounterparty `json:"top_clients"`
	TopSuppliers     []RankedCounterparty `json:"top_suppliers"`
	IncomeByCategory []CategoryShare      `json:"income_by_category"`

	Semaphore        []SemaphoreItem `json:"semaphore"`
	OverallSemaphore Severity        `json:"overall_semaphore"`

	TotalInvoices int        `json:"total_invoices"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
}

// ============================================================
// Demo seeding
// ============================================================

// SeedStats reports what the demo seeder created.
type SeedStats struct {
	Users     int `json:"users"`
	Companies int `json:"companies"`
	Invoices  int `json:"invoices"`
	Scores    int `json:"scores"`
	Alerts    int `json:"alerts"`
}

// ScenarioInfo describes one available demo scenario.
type ScenarioInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Sector      string `json:"sector"`
	HealthScore int    `json:"health_score"`
}

// SuccessResponse is a generic acknowledgement payload.
type SuccessResponse struct {
	Message string `json:"message"`
}

// ServiceMetrics is the JSON snapshot served by /v1/metrics/service.
type ServiceMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	ErrorRate     float64 `json:"error_rate"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	Period        string  `json:"period"`
}
