package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification tags drive which forecast growth profile applies.
const (
	ClassStable = "stable"
	ClassAtRisk = "at_risk"
	ClassMixed  = "mixed"
)

// Company is a legal entity that owns invoices, score snapshots
// and fiscal alerts.
type Company struct {
	ID               string `json:"id"`
	TaxID            string `json:"tax_id"`
	LegalName        string `json:"legal_name"`
	FiscalRegime     string `json:"fiscal_regime,omitempty"`
	FiscalRegimeName string `json:"fiscal_regime_name,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	Sector           string `json:"sector,omitempty"`
	Size             string `json:"size,omitempty"`

	// External fiscal-authority sync state.
	SyncConnected bool       `json:"sync_connected"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`

	// Classification selects the forecast growth profile.
	Classification string `json:"classification,omitempty"`

	// DemoScenario tags companies created by the demo seeder.
	DemoScenario string `json:"demo_scenario,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CompanyWithStats decorates a company with its headline numbers
// for the company list and detail views.
type CompanyWithStats struct {
	Company
	TotalInvoices int             `json:"total_invoices"`
	MonthIncome   decimal.Decimal `json:"month_income"`
	MonthExpense  decimal.Decimal `json:"month_expense"`
	HealthScore   int             `json:"health_score"`
	ActiveAlerts  int             `json:"active_alerts"`
}
