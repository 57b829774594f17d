package postgrest

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

// companyRow maps the companies table columns.
type companyRow struct {
	ID               string     `json:"id"`
	TaxID            string     `json:"tax_id"`
	LegalName        string     `json:"legal_name"`
	FiscalRegime     string     `json:"fiscal_regime"`
	FiscalRegimeName string     `json:"fiscal_regime_name"`
	PostalCode       string     `json:"postal_code"`
	Sector           string     `json:"sector"`
	Size             string     `json:"size"`
	SyncConnected    bool       `json:"sync_connected"`
	LastSyncAt       *time.Time `json:"last_sync_at"`
	Classification   string     `json:"classification"`
	DemoScenario     string     `json:"demo_scenario"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (r companyRow) toDomain() domain.Company {
	return domain.Company{
		ID:               r.ID,
		TaxID:            r.TaxID,
		LegalName:        r.LegalName,
		FiscalRegime:     r.FiscalRegime,
		FiscalRegimeName: r.FiscalRegimeName,
		PostalCode:       r.PostalCode,
		Sector:           r.Sector,
		Size:             r.Size,
		SyncConnected:    r.SyncConnected,
		LastSyncAt:       r.LastSyncAt,
		Classification:   r.Classification,
		DemoScenario:     r.DemoScenario,
		CreatedAt:        r.CreatedAt,
	}
}

// GetCompany fetches a single company by ID.
func (c *Client) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	path := "companies?id=eq." + url.QueryEscape(companyID) + "&limit=1"

	var rows []companyRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/companies", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}

	company := rows[0].toDomain()
	return &company, nil
}

// ListCompanies returns all companies, optionally filtered by demo scenario.
func (c *Client) ListCompanies(ctx context.Context, scenario string) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListCompanies")
	defer span.End()

	path := "companies?order=legal_name.asc"
	if scenario != "" {
		path += "&demo_scenario=eq." + url.QueryEscape(scenario)
	}

	var rows []companyRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/companies", err)
	}

	companies := make([]domain.Company, 0, len(rows))
	for _, r := range rows {
		companies = append(companies, r.toDomain())
	}
	return companies, nil
}
