package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Health Score
// ============================================================

// HealthScoreSnapshot is a point-in-time financial health score.
// Immutable once created; the serving path always reads the most
// recent snapshot by creation time.
type HealthScoreSnapshot struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`

	Total int `json:"total"` // 0–100

	// Components, each 0–100. Weights live in ScoreWeights.
	Liquidity             int `json:"liquidity"`
	FiscalCompliance      int `json:"fiscal_compliance"`
	ClientDiversification int `json:"client_diversification"`
	RevenueTrend          int `json:"revenue_trend"`
	OperatingMargin       int `json:"operating_margin"`
	Seasonality           int `json:"seasonality"`
	ReceivablesAging      int `json:"receivables_aging"`
	SupplierRisk          int `json:"supplier_risk"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ScoreComponent is one weighted entry of the score breakdown.
type ScoreComponent struct {
	Name   string `json:"name"`
	Value  int    `json:"value"`
	Weight string `json:"weight"` // e.g. "20%"
}

// HealthScoreBreakdown is the served view of the latest snapshot.
type HealthScoreBreakdown struct {
	Total      int              `json:"total"`
	Components []ScoreComponent `json:"components"`
	Strongest  string           `json:"strongest"`
	Weakest    string           `json:"weakest"`
	Period     string           `json:"period,omitempty"`
}

// ============================================================
// Fiscal Alerts (semaphore)
// ============================================================

// Severity is the traffic-light risk level. Ordering is total:
// red > yellow > green.
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

// Rank returns the position of s in the severity ordering.
// Unknown values rank as green.
func (s Severity) Rank() int {
	switch s {
	case SeverityRed:
		return 2
	case SeverityYellow:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the worse of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// AlertCategory identifies the kind of risk signal.
type AlertCategory string

const (
	AlertDeclaration    AlertCategory = "declaration"
	AlertBlacklist      AlertCategory = "blacklist"
	AlertCancellation   AlertCategory = "cancellation"
	AlertConcentration  AlertCategory = "concentration"
	AlertReconciliation AlertCategory = "reconciliation"
	AlertLiquidity      AlertCategory = "liquidity"
)

// AlertResolution is the lifecycle state of an alert. The analytics
// layer reads it but never transitions it.
type AlertResolution string

const (
	ResolutionPending   AlertResolution = "pending"
	ResolutionResolved  AlertResolution = "resolved"
	ResolutionDismissed AlertResolution = "dismissed"
)

// AlertContext is the optional structured payload attached to an alert.
type AlertContext struct {
	Example           string `json:"example,omitempty"`
	RecommendedAction string `json:"recommended_action,omitempty"`
}

// FiscalAlert is a pre-classified risk signal owned by a company.
type FiscalAlert struct {
	ID        string        `json:"id"`
	CompanyID string        `json:"company_id"`
	Category  AlertCategory `json:"category"`
	Severity  Severity      `json:"severity"`
	Title     string        `json:"title"`
	Detail    string        `json:"detail,omitempty"`
	// ContextRaw holds the embedded structured blob as stored.
	ContextRaw string          `json:"-"`
	Resolution AlertResolution `json:"resolution"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ParseAlertContext decodes the structured context blob. Malformed
// blobs degrade to a nil context; the alert itself is still served.
func ParseAlertContext(raw string) *AlertContext {
	if raw == "" {
		return nil
	}
	var ctx AlertContext
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil
	}
	if ctx.Example == "" && ctx.RecommendedAction == "" {
		return nil
	}
	return &ctx
}

// SemaphoreItem is the served view of one alert.
type SemaphoreItem struct {
	Name              string        `json:"name"`
	Category          AlertCategory `json:"category"`
	State             Severity      `json:"state"`
	Detail            string        `json:"detail"`
	Example           string        `json:"example,omitempty"`
	RecommendedAction string        `json:"recommended_action,omitempty"`
}

// SemaphoreSummary is the full semaphore for a company: every alert
// plus the worst-case overall state (green when no alerts exist).
type SemaphoreSummary struct {
	Overall Severity        `json:"overall"`
	Items   []SemaphoreItem `json:"items"`
}
