package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// ============================================================
// Company list and detail
// ============================================================

// ListCompanies returns every company, optionally filtered by demo
// scenario, each decorated with its headline numbers.
func (s *InsightsService) ListCompanies(ctx context.Context, scenario string, now time.Time) ([]domain.CompanyWithStats, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.ListCompanies")
	defer span.End()

	companies, err := s.companies.ListCompanies(ctx, scenario)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CompanyWithStats, len(companies))
	g, ctx := errgroup.WithContext(ctx)
	for i, company := range companies {
		i, company := i, company
		g.Go(func() error {
			stats, err := s.companyStats(ctx, company, now)
			if err != nil {
				return err
			}
			out[i] = *stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCompanyDetail returns one company with its headline numbers.
func (s *InsightsService) GetCompanyDetail(ctx context.Context, companyID string, now time.Time) (*domain.CompanyWithStats, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.GetCompanyDetail")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.companyStats(ctx, *company, now)
}

// companyStats gathers the per-company headline numbers in parallel:
// current-month income and expense, lifetime document count, latest
// health score and pending alert count.
func (s *InsightsService) companyStats(ctx context.Context, company domain.Company, now time.Time) (*domain.CompanyWithStats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	stats := &domain.CompanyWithStats{Company: company}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sum, err := s.ledger.SumTotal(ctx, port.LedgerFilter{
			CompanyID: company.ID,
			Kind:      domain.KindIncome,
			Status:    domain.StatusValid,
			From:      monthStart,
			To:        nextMonth,
		})
		if err != nil {
			return err
		}
		stats.MonthIncome = sum
		return nil
	})
	g.Go(func() error {
		sum, err := s.ledger.SumTotal(ctx, port.LedgerFilter{
			CompanyID: company.ID,
			Kind:      domain.KindExpense,
			Status:    domain.StatusValid,
			From:      monthStart,
			To:        nextMonth,
		})
		if err != nil {
			return err
		}
		stats.MonthExpense = sum
		return nil
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(ctx, port.LedgerFilter{CompanyID: company.ID})
		if err != nil {
			return err
		}
		stats.TotalInvoices = n
		return nil
	})
	g.Go(func() error {
		snap, err := s.insights.LatestScore(ctx, company.ID)
		if err != nil {
			return err
		}
		if snap != nil {
			stats.HealthScore = snap.Total
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.insights.CountPendingAlerts(ctx, company.ID)
		if err != nil {
			return err
		}
		stats.ActiveAlerts = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
