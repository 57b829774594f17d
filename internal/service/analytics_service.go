package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

const (
	seriesMonths = 8
	rankingLimit = 5
)

var oneHundred = decimal.NewFromInt(100)

// ============================================================
// Dashboard aggregation
// ============================================================

// GetDashboard builds the full KPI bundle for one company at the
// given reference instant. The independent ledger aggregates run in
// parallel; every read observes the ledger as-is and nothing is
// mutated.
func (s *InsightsService) GetDashboard(ctx context.Context, companyID string, now time.Time) (*domain.DashboardStats, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.GetDashboard")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	cacheKey := "dashboard:" + companyID
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("dashboard")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("dashboard")

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	prevMonth := monthStart.AddDate(0, -1, 0)
	seriesStart := monthStart.AddDate(0, 1-seriesMonths, 0)

	validIn := func(from, to time.Time) port.LedgerFilter {
		return port.LedgerFilter{
			CompanyID: companyID,
			Kind:      domain.KindIncome,
			Status:    domain.StatusValid,
			From:      from,
			To:        to,
		}
	}
	validOut := func(from, to time.Time) port.LedgerFilter {
		return port.LedgerFilter{
			CompanyID: companyID,
			Kind:      domain.KindExpense,
			Status:    domain.StatusValid,
			From:      from,
			To:        to,
		}
	}

	var (
		monthIncome, monthExpense decimal.Decimal
		prevIncome, prevExpense   decimal.Decimal
		totalInvoices             int
		series                    = make([]domain.MonthlyFlow, seriesMonths)
		cashFlow                  = make([]domain.BalancePoint, 4)
		rawClients, rawSuppliers  []domain.CounterpartyTotal
		snap                      *domain.HealthScoreSnapshot
		alerts                    []domain.FiscalAlert
	)

	g, gctx := errgroup.WithContext(ctx)

	sumInto := func(f port.LedgerFilter, dst *decimal.Decimal) func() error {
		return func() error {
			v, err := s.ledger.SumTotal(gctx, f)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		}
	}

	g.Go(sumInto(validIn(monthStart, nextMonth), &monthIncome))
	g.Go(sumInto(validOut(monthStart, nextMonth), &monthExpense))
	g.Go(sumInto(validIn(prevMonth, monthStart), &prevIncome))
	g.Go(sumInto(validOut(prevMonth, monthStart), &prevExpense))

	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, port.LedgerFilter{CompanyID: companyID})
		if err != nil {
			return err
		}
		totalInvoices = n
		return nil
	})

	for i := 0; i < seriesMonths; i++ {
		i := i
		mStart := monthStart.AddDate(0, i+1-seriesMonths, 0)
		mEnd := mStart.AddDate(0, 1, 0)
		g.Go(func() error {
			income, err := s.ledger.SumTotal(gctx, validIn(mStart, mEnd))
			if err != nil {
				return err
			}
			expense, err := s.ledger.SumTotal(gctx, validOut(mStart, mEnd))
			if err != nil {
				return err
			}
			series[i] = domain.MonthlyFlow{
				Month:   mStart.Format("Jan"),
				Income:  income,
				Expense: expense,
			}
			return nil
		})
	}

	// Intra-month balance curve: cumulative net flow at weekly cuts.
	for i := 0; i < 4; i++ {
		i := i
		day := (i + 1) * 7
		cut := monthStart.AddDate(0, 0, day)
		g.Go(func() error {
			income, err := s.ledger.SumTotal(gctx, validIn(monthStart, cut))
			if err != nil {
				return err
			}
			expense, err := s.ledger.SumTotal(gctx, validOut(monthStart, cut))
			if err != nil {
				return err
			}
			cashFlow[i] = domain.BalancePoint{
				Day:     fmt.Sprintf("Day %d", day),
				Balance: income.Sub(expense),
			}
			return nil
		})
	}

	g.Go(func() error {
		rows, err := s.ledger.TopCounterparties(gctx, validIn(seriesStart, nextMonth), port.GroupByReceiver, rankingLimit)
		if err != nil {
			return err
		}
		rawClients = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.ledger.TopCounterparties(gctx, validOut(seriesStart, nextMonth), port.GroupByIssuer, rankingLimit)
		if err != nil {
			return err
		}
		rawSuppliers = rows
		return nil
	})

	g.Go(func() error {
		latest, err := s.insights.LatestScore(gctx, companyID)
		if err != nil {
			return err
		}
		snap = latest
		return nil
	})
	g.Go(func() error {
		rows, err := s.insights.AlertsFor(gctx, companyID)
		if err != nil {
			return err
		}
		alerts = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard aggregation failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return nil, err
	}

	topClients, err := s.rankWithTrends(ctx, companyID, rawClients, domain.KindIncome, monthStart, nextMonth, prevMonth)
	if err != nil {
		return nil, err
	}
	topSuppliers, err := s.rankWithTrends(ctx, companyID, rawSuppliers, domain.KindExpense, monthStart, nextMonth, prevMonth)
	if err != nil {
		return nil, err
	}

	healthScore := 0
	if snap != nil {
		healthScore = snap.Total
	}

	items := buildSemaphoreItems(alerts)

	stats := &domain.DashboardStats{
		MonthIncome:  monthIncome,
		MonthExpense: monthExpense,

		GrossMarginPct:      grossMargin(monthIncome, monthExpense),
		IncomeVariationPct:  variation(monthIncome, prevIncome),
		ExpenseVariationPct: variation(monthExpense, prevExpense),

		HealthScore: healthScore,

		Revenue:          series,
		CashFlow:         cashFlow,
		TopClients:       topClients,
		TopSuppliers:     topSuppliers,
		IncomeByCategory: s.policy.Categories,

		Semaphore:        items,
		OverallSemaphore: overallSeverity(items),

		TotalInvoices: totalInvoices,
		LastSyncAt:    company.LastSyncAt,
	}

	s.cache.Set(cacheKey, stats)
	return stats, nil
}

// grossMargin computes (income − expense) / income × 100, defaulting
// to 0 when there is no income.
func grossMargin(income, expense decimal.Decimal) float64 {
	if income.IsZero() {
		return 0
	}
	margin := income.Sub(expense).Div(income).Mul(oneHundred)
	return round1(margin.InexactFloat64())
}

// variation computes the period-over-period change percentage. A zero
// prior period substitutes divisor 1 so the result stays finite.
func variation(current, prior decimal.Decimal) float64 {
	divisor := prior
	if divisor.IsZero() {
		divisor = decimal.NewFromInt(1)
	}
	v := current.Sub(prior).Div(divisor).Mul(oneHundred)
	return round1(v.InexactFloat64())
}

// rankWithTrends annotates raw group-by rows with a real
// month-over-month trend per counterparty.
func (s *InsightsService) rankWithTrends(ctx context.Context, companyID string, rows []domain.CounterpartyTotal, kind domain.InvoiceKind, monthStart, nextMonth, prevMonth time.Time) ([]domain.RankedCounterparty, error) {
	ranked := make([]domain.RankedCounterparty, 0, len(rows))

	for _, row := range rows {
		base := port.LedgerFilter{
			CompanyID: companyID,
			Kind:      kind,
			Status:    domain.StatusValid,
		}
		if kind == domain.KindIncome {
			base.ReceiverTaxID = row.TaxID
		} else {
			base.IssuerTaxID = row.TaxID
		}

		current := base
		current.From, current.To = monthStart, nextMonth
		prior := base
		prior.From, prior.To = prevMonth, monthStart

		curSum, err := s.ledger.SumTotal(ctx, current)
		if err != nil {
			return nil, err
		}
		priorSum, err := s.ledger.SumTotal(ctx, prior)
		if err != nil {
			return nil, err
		}

		trend := domain.TrendUnknown
		switch curSum.Cmp(priorSum) {
		case 1:
			trend = domain.TrendUp
		case -1:
			trend = domain.TrendDown
		}

		ranked = append(ranked, domain.RankedCounterparty{
			Name:     row.Name,
			TaxID:    row.TaxID,
			Total:    row.Total,
			Invoices: row.Count,
			Trend:    trend,
		})
	}
	return ranked, nil
}

// ============================================================
// Invoice listing
// ============================================================

// ListInvoices returns one page of a company's invoices, optionally
// filtered by direction.
func (s *InsightsService) ListInvoices(ctx context.Context, companyID string, kind domain.InvoiceKind, page, pageSize int) (*domain.InvoicePage, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.ListInvoices")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if _, err := s.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	switch kind {
	case "", domain.KindIncome, domain.KindExpense, domain.KindTransfer, domain.KindPayroll, domain.KindPayment:
	default:
		return nil, &domain.ErrValidation{Field: "kind", Message: fmt.Sprintf("unknown invoice kind %q", kind)}
	}

	return s.ledger.ListInvoices(ctx, port.LedgerFilter{CompanyID: companyID, Kind: kind}, page, pageSize)
}
