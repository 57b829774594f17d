package postgrest

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

// scoreRow maps the health_scores table columns.
type scoreRow struct {
	ID                    string     `json:"id"`
	CompanyID             string     `json:"company_id"`
	Total                 int        `json:"total"`
	Liquidity             int        `json:"liquidity"`
	FiscalCompliance      int        `json:"fiscal_compliance"`
	ClientDiversification int        `json:"client_diversification"`
	RevenueTrend          int        `json:"revenue_trend"`
	OperatingMargin       int        `json:"operating_margin"`
	Seasonality           int        `json:"seasonality"`
	ReceivablesAging      int        `json:"receivables_aging"`
	SupplierRisk          int        `json:"supplier_risk"`
	PeriodStart           *time.Time `json:"period_start"`
	PeriodEnd             *time.Time `json:"period_end"`
	CreatedAt             time.Time  `json:"created_at"`
}

func (r scoreRow) toDomain() domain.HealthScoreSnapshot {
	return domain.HealthScoreSnapshot{
		ID:                    r.ID,
		CompanyID:             r.CompanyID,
		Total:                 r.Total,
		Liquidity:             r.Liquidity,
		FiscalCompliance:      r.FiscalCompliance,
		ClientDiversification: r.ClientDiversification,
		RevenueTrend:          r.RevenueTrend,
		OperatingMargin:       r.OperatingMargin,
		Seasonality:           r.Seasonality,
		ReceivablesAging:      r.ReceivablesAging,
		SupplierRisk:          r.SupplierRisk,
		PeriodStart:           r.PeriodStart,
		PeriodEnd:             r.PeriodEnd,
		CreatedAt:             r.CreatedAt,
	}
}

// alertRow maps the fiscal_alerts table columns. The metadata column
// is kept raw and parsed fail-soft by the domain layer.
type alertRow struct {
	ID         string     `json:"id"`
	CompanyID  string     `json:"company_id"`
	Category   string     `json:"category"`
	Severity   string     `json:"severity"`
	Title      string     `json:"title"`
	Detail     string     `json:"detail"`
	Metadata   string     `json:"metadata"`
	Resolution string     `json:"resolution"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (r alertRow) toDomain() domain.FiscalAlert {
	return domain.FiscalAlert{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		Category:   domain.AlertCategory(r.Category),
		Severity:   domain.Severity(r.Severity),
		Title:      r.Title,
		Detail:     r.Detail,
		ContextRaw: r.Metadata,
		Resolution: domain.AlertResolution(r.Resolution),
		ResolvedAt: r.ResolvedAt,
		CreatedAt:  r.CreatedAt,
	}
}

// LatestScore returns the most recent snapshot, or (nil, nil) when the
// company has no snapshot yet.
func (c *Client) LatestScore(ctx context.Context, companyID string) (*domain.HealthScoreSnapshot, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.LatestScore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	path := "health_scores?company_id=eq." + url.QueryEscape(companyID) + "&order=created_at.desc&limit=1"

	var rows []scoreRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/health_scores", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	snap := rows[0].toDomain()
	return &snap, nil
}

// InsertScore persists a new score snapshot.
func (c *Client) InsertScore(ctx context.Context, snap *domain.HealthScoreSnapshot) error {
	ctx, span := tracer.Start(ctx, "PostgREST.InsertScore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", snap.CompanyID))

	data := map[string]any{
		"id":                     snap.ID,
		"company_id":             snap.CompanyID,
		"total":                  snap.Total,
		"liquidity":              snap.Liquidity,
		"fiscal_compliance":      snap.FiscalCompliance,
		"client_diversification": snap.ClientDiversification,
		"revenue_trend":          snap.RevenueTrend,
		"operating_margin":       snap.OperatingMargin,
		"seasonality":            snap.Seasonality,
		"receivables_aging":      snap.ReceivablesAging,
		"supplier_risk":          snap.SupplierRisk,
	}
	if snap.PeriodStart != nil {
		data["period_start"] = snap.PeriodStart.UTC().Format(time.RFC3339)
	}
	if snap.PeriodEnd != nil {
		data["period_end"] = snap.PeriodEnd.UTC().Format(time.RFC3339)
	}

	if _, err := c.doPost(ctx, "health_scores", data); err != nil {
		return c.storeErr("postgrest/health_scores", err)
	}
	return nil
}

// AlertsFor returns alerts for a company, newest first.
func (c *Client) AlertsFor(ctx context.Context, companyID string) ([]domain.FiscalAlert, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.AlertsFor")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	path := "fiscal_alerts?company_id=eq." + url.QueryEscape(companyID) + "&order=created_at.desc"

	var rows []alertRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/fiscal_alerts", err)
	}

	alerts := make([]domain.FiscalAlert, 0, len(rows))
	for _, r := range rows {
		alerts = append(alerts, r.toDomain())
	}
	return alerts, nil
}

// CountPendingAlerts counts unresolved alerts for a company.
func (c *Client) CountPendingAlerts(ctx context.Context, companyID string) (int, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CountPendingAlerts")
	defer span.End()

	path := "fiscal_alerts?select=id&company_id=eq." + url.QueryEscape(companyID) + "&resolution=eq.pending"
	n, err := c.doCount(ctx, path)
	if err != nil {
		return 0, c.storeErr("postgrest/fiscal_alerts", err)
	}
	return n, nil
}
