package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

// ============================================================
// Fiscal risk semaphore
// ============================================================

// categoryNames maps alert categories to display names.
var categoryNames = map[domain.AlertCategory]string{
	domain.AlertDeclaration:    "Declaraciones",
	domain.AlertBlacklist:      "Exposición 69-B",
	domain.AlertCancellation:   "Cancelaciones",
	domain.AlertConcentration:  "Concentración de clientes",
	domain.AlertReconciliation: "Conciliación",
	domain.AlertLiquidity:      "Liquidez",
}

// GetSemaphore returns the company's alert set annotated with
// severity, plus the worst-case overall state.
func (s *InsightsService) GetSemaphore(ctx context.Context, companyID string) (*domain.SemaphoreSummary, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.GetSemaphore")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if _, err := s.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	alerts, err := s.insights.AlertsFor(ctx, companyID)
	if err != nil {
		return nil, err
	}

	items := buildSemaphoreItems(alerts)
	return &domain.SemaphoreSummary{
		Overall: overallSeverity(items),
		Items:   items,
	}, nil
}

// buildSemaphoreItems renders pending alerts as semaphore entries.
// Structured context parsing is fail-soft: a malformed blob drops the
// optional fields, never the alert.
func buildSemaphoreItems(alerts []domain.FiscalAlert) []domain.SemaphoreItem {
	items := make([]domain.SemaphoreItem, 0, len(alerts))
	for _, alert := range alerts {
		if alert.Resolution != domain.ResolutionPending {
			continue
		}

		name := categoryNames[alert.Category]
		if name == "" {
			name = alert.Title
		}

		item := domain.SemaphoreItem{
			Name:     name,
			Category: alert.Category,
			State:    alert.Severity,
			Detail:   alert.Detail,
		}
		if item.Detail == "" {
			item.Detail = alert.Title
		}
		if ctx := domain.ParseAlertContext(alert.ContextRaw); ctx != nil {
			item.Example = ctx.Example
			item.RecommendedAction = ctx.RecommendedAction
		}
		items = append(items, item)
	}
	return items
}

// overallSeverity reduces items to the maximum severity present,
// green when the set is empty.
func overallSeverity(items []domain.SemaphoreItem) domain.Severity {
	overall := domain.SeverityGreen
	for _, item := range items {
		overall = domain.MaxSeverity(overall, item.State)
	}
	return overall
}
