package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

const companyColumns = `id, tax_id, legal_name, fiscal_regime, fiscal_regime_name,
	postal_code, sector, size, sync_connected, last_sync_at,
	classification, demo_scenario, created_at`

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(
		&c.ID, &c.TaxID, &c.LegalName, &c.FiscalRegime, &c.FiscalRegimeName,
		&c.PostalCode, &c.Sector, &c.Size, &c.SyncConnected, &c.LastSyncAt,
		&c.Classification, &c.DemoScenario, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompany fetches a single company by ID.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	row := s.pool.QueryRow(ctx, "SELECT "+companyColumns+" FROM companies WHERE id = $1", companyID)
	company, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	if err != nil {
		return nil, s.storeErr("postgres/companies", err)
	}
	return company, nil
}

// ListCompanies returns all companies, optionally filtered by demo scenario.
func (s *Store) ListCompanies(ctx context.Context, scenario string) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListCompanies")
	defer span.End()

	query := "SELECT " + companyColumns + " FROM companies"
	var args []any
	if scenario != "" {
		query += " WHERE demo_scenario = $1"
		args = append(args, scenario)
	}
	query += " ORDER BY legal_name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("postgres/companies", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, s.storeErr("postgres/companies", err)
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("postgres/companies", err)
	}
	return companies, nil
}
