package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// ============================================================
// Health score
// ============================================================

// GetHealthScore serves the latest snapshot as a weighted breakdown.
// A company without a snapshot is a NotFound condition, never a
// fabricated zero score.
func (s *InsightsService) GetHealthScore(ctx context.Context, companyID string) (*domain.HealthScoreBreakdown, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.GetHealthScore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if _, err := s.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	snap, err := s.insights.LatestScore(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &domain.ErrNotFound{Resource: "health score", ID: companyID}
	}

	return buildBreakdown(snap, s.policy.Weights), nil
}

// buildBreakdown renders a snapshot with the weight table. Strongest
// and weakest resolve ties by the fixed component ordering.
func buildBreakdown(snap *domain.HealthScoreSnapshot, w domain.ScoreWeights) *domain.HealthScoreBreakdown {
	components := []domain.ScoreComponent{
		{Name: "Liquidez", Value: snap.Liquidity, Weight: fmt.Sprintf("%d%%", w.Liquidity)},
		{Name: "Cumplimiento fiscal", Value: snap.FiscalCompliance, Weight: fmt.Sprintf("%d%%", w.FiscalCompliance)},
		{Name: "Diversificación de clientes", Value: snap.ClientDiversification, Weight: fmt.Sprintf("%d%%", w.ClientDiversification)},
		{Name: "Tendencia de ingresos", Value: snap.RevenueTrend, Weight: fmt.Sprintf("%d%%", w.RevenueTrend)},
		{Name: "Margen operativo", Value: snap.OperatingMargin, Weight: fmt.Sprintf("%d%%", w.OperatingMargin)},
		{Name: "Estacionalidad", Value: snap.Seasonality, Weight: fmt.Sprintf("%d%%", w.Seasonality)},
		{Name: "Antigüedad de cobros", Value: snap.ReceivablesAging, Weight: fmt.Sprintf("%d%%", w.ReceivablesAging)},
		{Name: "Riesgo de proveedores", Value: snap.SupplierRisk, Weight: fmt.Sprintf("%d%%", w.SupplierRisk)},
	}

	strongest, weakest := components[0], components[0]
	for _, c := range components[1:] {
		if c.Value > strongest.Value {
			strongest = c
		}
		if c.Value < weakest.Value {
			weakest = c
		}
	}

	period := ""
	if snap.PeriodStart != nil && snap.PeriodEnd != nil {
		period = fmt.Sprintf("%s – %s",
			snap.PeriodStart.Format("Jan 2006"),
			snap.PeriodEnd.AddDate(0, 0, -1).Format("Jan 2006"),
		)
	}

	return &domain.HealthScoreBreakdown{
		Total:      snap.Total,
		Components: components,
		Strongest:  strongest.Name,
		Weakest:    weakest.Name,
		Period:     period,
	}
}

// RecomputeScore runs the scoring job: derives the eight components
// from trailing-6-month ledger data, folds them with the weight table
// and appends a new snapshot.
func (s *InsightsService) RecomputeScore(ctx context.Context, companyID string, now time.Time) (*domain.HealthScoreBreakdown, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.RecomputeScore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if _, err := s.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := monthStart.AddDate(0, -5, 0)
	windowEnd := monthStart.AddDate(0, 1, 0)

	base := port.LedgerFilter{CompanyID: companyID, From: windowStart, To: windowEnd}

	validIncome := base
	validIncome.Kind, validIncome.Status = domain.KindIncome, domain.StatusValid
	validExpense := base
	validExpense.Kind, validExpense.Status = domain.KindExpense, domain.StatusValid
	voidedIncome := base
	voidedIncome.Kind, voidedIncome.Status = domain.KindIncome, domain.StatusVoided
	deferredIncome := validIncome
	deferredIncome.PaymentMethod = "PPD"

	var (
		income, expense        decimal.Decimal
		incomeDocs, voidedDocs int
		deferredDocs           int
		topClients             []domain.CounterpartyTotal
		topSuppliers           []domain.CounterpartyTotal
		monthly                = make([]decimal.Decimal, 6)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.ledger.SumTotal(gctx, validIncome)
		income = v
		return err
	})
	g.Go(func() error {
		v, err := s.ledger.SumTotal(gctx, validExpense)
		expense = v
		return err
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, validIncome)
		incomeDocs = n
		return err
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, voidedIncome)
		voidedDocs = n
		return err
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, deferredIncome)
		deferredDocs = n
		return err
	})
	g.Go(func() error {
		rows, err := s.ledger.TopCounterparties(gctx, validIncome, port.GroupByReceiver, 1)
		topClients = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.ledger.TopCounterparties(gctx, validExpense, port.GroupByIssuer, 1)
		topSuppliers = rows
		return err
	})
	for i := 0; i < 6; i++ {
		i := i
		f := validIncome
		f.From = windowStart.AddDate(0, i, 0)
		f.To = f.From.AddDate(0, 1, 0)
		g.Go(func() error {
			v, err := s.ledger.SumTotal(gctx, f)
			monthly[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("score recomputation failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return nil, err
	}

	snap := &domain.HealthScoreSnapshot{
		ID:                    uuid.NewString(),
		CompanyID:             companyID,
		Liquidity:             liquidityComponent(income, expense),
		FiscalCompliance:      complianceComponent(incomeDocs, voidedDocs),
		ClientDiversification: concentrationComponent(topClients, income),
		RevenueTrend:          trendComponent(monthly),
		OperatingMargin:       marginComponent(income, expense),
		Seasonality:           seasonalityComponent(monthly),
		ReceivablesAging:      receivablesComponent(incomeDocs, deferredDocs),
		SupplierRisk:          concentrationComponent(topSuppliers, expense),
		PeriodStart:           &windowStart,
		PeriodEnd:             &windowEnd,
	}
	snap.Total = domain.WeightedTotal(snap, s.policy.Weights)

	if err := s.insights.InsertScore(ctx, snap); err != nil {
		return nil, err
	}

	s.metrics.IncrScoreComputed()
	s.cache.Delete("dashboard:" + companyID)
	s.logger.Info("health score recomputed",
		zap.String("company_id", companyID),
		zap.Int("total", snap.Total),
	)

	return buildBreakdown(snap, s.policy.Weights), nil
}

// ============================================================
// Component heuristics
// ============================================================

// liquidityComponent scores the income-to-expense ratio. A company
// covering its outflows 1.67x scores 100.
func liquidityComponent(income, expense decimal.Decimal) int {
	if expense.IsZero() {
		if income.IsZero() {
			return 50
		}
		return 100
	}
	ratio := income.Div(expense).InexactFloat64()
	return clampScore(ratio * 60)
}

// complianceComponent penalizes the voided-document rate.
func complianceComponent(validDocs, voidedDocs int) int {
	total := validDocs + voidedDocs
	if total == 0 {
		return 50
	}
	cancelRate := float64(voidedDocs) / float64(total) * 100
	return clampScore(100 - cancelRate*10)
}

// concentrationComponent scores counterparty diversification from the
// top counterparty's share of the volume.
func concentrationComponent(top []domain.CounterpartyTotal, volume decimal.Decimal) int {
	if len(top) == 0 || volume.IsZero() {
		return 50
	}
	share := top[0].Total.Div(volume).InexactFloat64() * 100
	return clampScore((50 - share) * 2.5)
}

// trendComponent compares the last three months of income with the
// prior three.
func trendComponent(monthly []decimal.Decimal) int {
	if len(monthly) < 6 {
		return 50
	}
	older := monthly[0].Add(monthly[1]).Add(monthly[2])
	recent := monthly[3].Add(monthly[4]).Add(monthly[5])
	if older.IsZero() {
		if recent.IsZero() {
			return 50
		}
		return 75
	}
	growth := recent.Sub(older).Div(older).InexactFloat64() * 100
	return clampScore(50 + growth)
}

// marginComponent scores the operating margin; 40% margin scores 100.
func marginComponent(income, expense decimal.Decimal) int {
	if income.IsZero() {
		return 0
	}
	margin := income.Sub(expense).Div(income).InexactFloat64() * 100
	return clampScore(margin * 2.5)
}

// seasonalityComponent penalizes monthly income dispersion via the
// coefficient of variation.
func seasonalityComponent(monthly []decimal.Decimal) int {
	if len(monthly) == 0 {
		return 50
	}
	var sum float64
	values := make([]float64, len(monthly))
	for i, m := range monthly {
		values[i] = m.InexactFloat64()
		sum += values[i]
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 50
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	cv := math.Sqrt(sq/float64(len(values))) / mean
	return clampScore(100 - cv*100)
}

// receivablesComponent penalizes the share of deferred-payment (PPD)
// income documents, a proxy for outstanding receivables.
func receivablesComponent(incomeDocs, deferredDocs int) int {
	if incomeDocs == 0 {
		return 50
	}
	share := float64(deferredDocs) / float64(incomeDocs)
	return clampScore(100 - share*100)
}
