package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// ============================================================
// Cash-flow forecast
// ============================================================

// GetForecast projects three forward months of cash flow from
// trailing-6-month baselines and the company's scenario growth
// profile.
func (s *InsightsService) GetForecast(ctx context.Context, companyID string, now time.Time) (*domain.ForecastBundle, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.GetForecast")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	pol := s.policy.Forecast
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	trailing := pol.TrailingMonths
	incomeByMonth := make([]decimal.Decimal, trailing)
	expenseByMonth := make([]decimal.Decimal, trailing)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < trailing; i++ {
		i := i
		from := monthStart.AddDate(0, i-trailing, 0)
		to := from.AddDate(0, 1, 0)
		g.Go(func() error {
			v, err := s.ledger.SumTotal(gctx, port.LedgerFilter{
				CompanyID: companyID, Kind: domain.KindIncome, Status: domain.StatusValid, From: from, To: to,
			})
			incomeByMonth[i] = v
			return err
		})
		g.Go(func() error {
			v, err := s.ledger.SumTotal(gctx, port.LedgerFilter{
				CompanyID: companyID, Kind: domain.KindExpense, Status: domain.StatusValid, From: from, To: to,
			})
			expenseByMonth[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avgIncome := meanOf(incomeByMonth)
	avgExpense := meanOf(expenseByMonth)

	profile := pol.ProfileFor(company.Classification)
	bundle := Project(avgIncome, avgExpense, profile, pol, monthStart)
	bundle.Seasonality = s.policy.Seasonality
	bundle.CompanyName = company.LegalName
	return bundle, nil
}

// Project is the pure projection core: trailing averages in, three
// projected months plus horizon KPIs out.
func Project(avgIncome, avgExpense decimal.Decimal, profile domain.GrowthProfile, pol domain.ForecastPolicy, monthStart time.Time) *domain.ForecastBundle {
	tightThreshold := avgIncome.Mul(decimal.NewFromFloat(pol.TightMarginRatio))

	projections := make([]domain.ForecastMonth, 0, 3)
	var income3m, expense3m decimal.Decimal
	riskMonths := 0

	for i := 0; i < 3; i++ {
		projIncome := avgIncome.Mul(decimal.NewFromFloat(profile.Income[i])).Round(0)
		projExpense := avgExpense.Mul(decimal.NewFromFloat(profile.Expense[i])).Round(0)
		net := projIncome.Sub(projExpense)

		var alert domain.ForecastAlert
		switch {
		case net.IsNegative():
			alert = domain.ForecastLiquidityRisk
		case net.LessThan(tightThreshold):
			alert = domain.ForecastTightMargin
		}
		if alert != "" {
			riskMonths++
		}

		projections = append(projections, domain.ForecastMonth{
			Month:            monthStart.AddDate(0, i+1, 0).Format("Jan 2006"),
			ProjectedIncome:  projIncome,
			ProjectedExpense: projExpense,
			NetFlow:          net,
			Alert:            alert,
			Confidence:       pol.ConfidenceStart - i*pol.ConfidenceStep,
		})

		income3m = income3m.Add(projIncome)
		expense3m = expense3m.Add(projExpense)
	}

	kpis := domain.ForecastKPIs{
		Income3M:     income3m,
		Expense3M:    expense3m,
		NetFlow3M:    income3m.Sub(expense3m),
		RiskMonths:   riskMonths,
		IncomeTrend:  trendLabel(profile.Income[2]),
		ExpenseTrend: trendLabel(profile.Expense[2]),
	}

	return &domain.ForecastBundle{
		Projections: projections,
		KPIs:        kpis,
		Risk:        assessRisk(projections, riskMonths),
	}
}

func meanOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// trendLabel classifies a profile's terminal multiplier.
func trendLabel(terminal float64) string {
	if terminal > 1 {
		return "increasing"
	}
	return "decreasing"
}

// assessRisk summarizes the horizon's posture from its flagged months.
func assessRisk(projections []domain.ForecastMonth, riskMonths int) domain.RiskAssessment {
	level := "low"
	switch {
	case riskMonths >= 2:
		level = "high"
	case riskMonths == 1:
		level = "medium"
	}

	var factors []string
	for _, p := range projections {
		switch p.Alert {
		case domain.ForecastLiquidityRisk:
			factors = append(factors, fmt.Sprintf("Projected negative cash flow in %s", p.Month))
		case domain.ForecastTightMargin:
			factors = append(factors, fmt.Sprintf("Tight projected margin in %s", p.Month))
		}
	}
	if len(factors) == 0 {
		factors = []string{"No liquidity risk detected over the projection horizon"}
	}

	return domain.RiskAssessment{Level: level, Factors: factors}
}
