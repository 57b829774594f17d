package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

const scoreColumns = `id, company_id, total, liquidity, fiscal_compliance,
	client_diversification, revenue_trend, operating_margin, seasonality,
	receivables_aging, supplier_risk, period_start, period_end, created_at`

// LatestScore returns the most recent snapshot, or (nil, nil) when the
// company has no snapshot yet.
func (s *Store) LatestScore(ctx context.Context, companyID string) (*domain.HealthScoreSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Postgres.LatestScore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	var snap domain.HealthScoreSnapshot
	err := s.pool.QueryRow(ctx,
		"SELECT "+scoreColumns+" FROM health_scores WHERE company_id = $1 ORDER BY created_at DESC LIMIT 1",
		companyID,
	).Scan(
		&snap.ID, &snap.CompanyID, &snap.Total, &snap.Liquidity, &snap.FiscalCompliance,
		&snap.ClientDiversification, &snap.RevenueTrend, &snap.OperatingMargin, &snap.Seasonality,
		&snap.ReceivablesAging, &snap.SupplierRisk, &snap.PeriodStart, &snap.PeriodEnd, &snap.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeErr("postgres/health_scores", err)
	}
	return &snap, nil
}

// InsertScore persists a new score snapshot.
func (s *Store) InsertScore(ctx context.Context, snap *domain.HealthScoreSnapshot) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertScore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", snap.CompanyID))

	_, err := s.pool.Exec(ctx, `
		INSERT INTO health_scores (
			id, company_id, total, liquidity, fiscal_compliance,
			client_diversification, revenue_trend, operating_margin, seasonality,
			receivables_aging, supplier_risk, period_start, period_end
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		snap.ID, snap.CompanyID, snap.Total, snap.Liquidity, snap.FiscalCompliance,
		snap.ClientDiversification, snap.RevenueTrend, snap.OperatingMargin, snap.Seasonality,
		snap.ReceivablesAging, snap.SupplierRisk, snap.PeriodStart, snap.PeriodEnd,
	)
	if err != nil {
		return s.storeErr("postgres/health_scores", err)
	}
	return nil
}

// AlertsFor returns alerts for a company, newest first.
func (s *Store) AlertsFor(ctx context.Context, companyID string) ([]domain.FiscalAlert, error) {
	ctx, span := tracer.Start(ctx, "Postgres.AlertsFor")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, category, severity, title, detail,
		       COALESCE(metadata::text, ''), resolution, resolved_at, created_at
		FROM fiscal_alerts
		WHERE company_id = $1
		ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, s.storeErr("postgres/fiscal_alerts", err)
	}
	defer rows.Close()

	var alerts []domain.FiscalAlert
	for rows.Next() {
		var a domain.FiscalAlert
		var category, severity, resolution string
		if err := rows.Scan(
			&a.ID, &a.CompanyID, &category, &severity, &a.Title, &a.Detail,
			&a.ContextRaw, &resolution, &a.ResolvedAt, &a.CreatedAt,
		); err != nil {
			return nil, s.storeErr("postgres/fiscal_alerts", err)
		}
		a.Category = domain.AlertCategory(category)
		a.Severity = domain.Severity(severity)
		a.Resolution = domain.AlertResolution(resolution)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("postgres/fiscal_alerts", err)
	}
	return alerts, nil
}

// CountPendingAlerts counts unresolved alerts for a company.
func (s *Store) CountPendingAlerts(ctx context.Context, companyID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CountPendingAlerts")
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM fiscal_alerts WHERE company_id = $1 AND resolution = 'pending'",
		companyID,
	).Scan(&n)
	if err != nil {
		return 0, s.storeErr("postgres/fiscal_alerts", err)
	}
	return n, nil
}
