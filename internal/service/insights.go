// Package service provides the business logic layer (use cases).
// InsightsService derives dashboard analytics, health scores, risk
// semaphores, cash-flow forecasts and credit readiness from the
// invoice ledger and the score/alert store.
package service

import (
	"math"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/observability"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

var insightsTracer = otel.Tracer("service/insights")

// InsightsService orchestrates all analytics reads. It never mutates
// ledger state; the only write path is the score recomputation, which
// appends a snapshot to the score store.
type InsightsService struct {
	ledger    port.InvoiceLedger
	companies port.CompanyStore
	insights  port.InsightStore
	policy    domain.Policy
	cache     port.Cache[*domain.DashboardStats]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewInsightsService creates the analytics service.
func NewInsightsService(
	ledger port.InvoiceLedger,
	companies port.CompanyStore,
	insights port.InsightStore,
	policy domain.Policy,
	cache port.Cache[*domain.DashboardStats],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *InsightsService {
	return &InsightsService{
		ledger:    ledger,
		companies: companies,
		insights:  insights,
		policy:    policy,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// FlushCache drops every cached dashboard. Called after bulk writes
// such as demo reseeding, which replace ledger data wholesale.
func (s *InsightsService) FlushCache() {
	s.cache.Flush()
	s.logger.Debug("dashboard cache flushed")
}

// round1 rounds a percentage to one decimal for display fields.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// clampScore bounds a component to the [0,100] score range.
func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
