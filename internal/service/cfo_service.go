package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// cfoContext is the KPI base every answer is enriched from: current
// month totals plus trailing-window figures for concentration and
// cancellation rates.
type cfoContext struct {
	company   domain.Company
	income    decimal.Decimal
	expense   decimal.Decimal
	snapshot  *domain.HealthScoreSnapshot
	totalDocs int

	windowIncome decimal.Decimal
	incomeDocs   int
	voidedDocs   int
	topClients   []domain.CounterpartyTotal
	alerts       []domain.FiscalAlert
}

func (c cfoContext) margin() float64 {
	return grossMargin(c.income, c.expense)
}

func (c cfoContext) coverageRatio() float64 {
	if c.expense.IsZero() {
		return 0
	}
	v, _ := c.income.Div(c.expense).Float64()
	return v
}

// CFOChat answers a free-text finance question. Answers are
// keyword-matched and rendered from the company's live figures, so
// the same question tracks the ledger as it changes.
func (s *InsightsService) CFOChat(ctx context.Context, companyID, message string, now time.Time) (*domain.CFOChatReply, error) {
	ctx, span := insightsTracer.Start(ctx, "InsightsService.CFOChat")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("cfo_chat", time.Since(start))
	}()

	if strings.TrimSpace(message) == "" {
		return nil, &domain.ErrValidation{Field: "message", Message: "must not be empty"}
	}

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	kpi, err := s.cfoKPIBase(ctx, *company, now)
	if err != nil {
		s.logger.Error("cfo chat kpi gathering failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return nil, err
	}

	// Ordered so that the first matching topic wins.
	topics := []struct {
		key    string
		answer func(cfoContext) string
	}{
		{"flujo", s.answerCashFlow},
		{"liquidez", s.answerLiquidity},
		{"concentraci", s.answerConcentration},
		{"score", s.answerScore},
		{"cancelaci", s.answerCancellation},
		{"proveedor", s.answerSuppliers},
		{"efos", s.answerSuppliers},
	}

	response := s.answerSummary(*kpi)
	lower := strings.ToLower(message)
	for _, t := range topics {
		if strings.Contains(lower, t.key) {
			response = t.answer(*kpi)
			break
		}
	}

	return &domain.CFOChatReply{
		Response:   response,
		Sources:    []string{"CFDIs sincronizados", "Score de salud", "Alertas fiscales"},
		Disclaimer: "Verificar con tu contador para decisiones fiscales críticas.",
	}, nil
}

// cfoKPIBase gathers the answer inputs in parallel: current-month
// income and expense, the latest score, lifetime document count, and
// trailing-6-month income, cancellation and concentration figures.
func (s *InsightsService) cfoKPIBase(ctx context.Context, company domain.Company, now time.Time) (*cfoContext, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	windowStart := monthStart.AddDate(0, -5, 0)

	windowIncome := port.LedgerFilter{
		CompanyID: company.ID,
		Kind:      domain.KindIncome,
		Status:    domain.StatusValid,
		From:      windowStart,
		To:        nextMonth,
	}
	voidedIncome := windowIncome
	voidedIncome.Status = domain.StatusVoided

	kpi := &cfoContext{company: company}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.ledger.SumTotal(gctx, port.LedgerFilter{
			CompanyID: company.ID, Kind: domain.KindIncome, Status: domain.StatusValid,
			From: monthStart, To: nextMonth,
		})
		kpi.income = v
		return err
	})
	g.Go(func() error {
		v, err := s.ledger.SumTotal(gctx, port.LedgerFilter{
			CompanyID: company.ID, Kind: domain.KindExpense, Status: domain.StatusValid,
			From: monthStart, To: nextMonth,
		})
		kpi.expense = v
		return err
	})
	g.Go(func() error {
		snap, err := s.insights.LatestScore(gctx, company.ID)
		kpi.snapshot = snap
		return err
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, port.LedgerFilter{CompanyID: company.ID})
		kpi.totalDocs = n
		return err
	})
	g.Go(func() error {
		v, err := s.ledger.SumTotal(gctx, windowIncome)
		kpi.windowIncome = v
		return err
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, windowIncome)
		kpi.incomeDocs = n
		return err
	})
	g.Go(func() error {
		n, err := s.ledger.CountInvoices(gctx, voidedIncome)
		kpi.voidedDocs = n
		return err
	})
	g.Go(func() error {
		rows, err := s.ledger.TopCounterparties(gctx, windowIncome, port.GroupByReceiver, 1)
		kpi.topClients = rows
		return err
	})
	g.Go(func() error {
		alerts, err := s.insights.AlertsFor(gctx, company.ID)
		for _, a := range alerts {
			if a.Resolution == domain.ResolutionPending {
				kpi.alerts = append(kpi.alerts, a)
			}
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return kpi, nil
}

// ============================================================
// Topic answers
// ============================================================

func (s *InsightsService) answerSummary(kpi cfoContext) string {
	score := 0
	if kpi.snapshot != nil {
		score = kpi.snapshot.Total
	}
	return fmt.Sprintf(
		"Analicé los datos financieros de **%s**.\n\n"+
			"**Resumen ejecutivo:**\n"+
			"- Ingresos del mes: %s MXN\n"+
			"- Egresos del mes: %s MXN\n"+
			"- Margen bruto: %.1f%%\n"+
			"- Score de salud: %d/100\n"+
			"- Alertas activas: %d\n\n"+
			"¿Sobre qué tema quieres profundizar? Puedo hablar sobre:\n"+
			"- **Flujo de efectivo** y proyecciones\n"+
			"- **Liquidez** y riesgo\n"+
			"- **Concentración** de clientes\n"+
			"- **Score** de salud financiera\n"+
			"- **Cancelaciones** de CFDIs\n"+
			"- **Proveedores** y riesgo EFOS",
		kpi.company.LegalName,
		pesos(kpi.income), pesos(kpi.expense),
		kpi.margin(), score, len(kpi.alerts),
	)
}

func (s *InsightsService) answerCashFlow(kpi cfoContext) string {
	trend := "tendencia negativa"
	if kpi.margin() > 0 {
		trend = "tendencia positiva"
	}
	advice := "Tu margen es ajustado. Considera revisar los egresos principales."
	if kpi.margin() > 30 {
		advice = "Tu margen es saludable (>30%). Mantén esta tendencia."
	}
	return fmt.Sprintf(
		"Tu flujo de efectivo muestra una **%s** este mes.\n\n"+
			"- **Ingresos del mes:** %s MXN\n"+
			"- **Egresos del mes:** %s MXN\n"+
			"- **Margen neto:** %.1f%%\n"+
			"- **Ratio cobertura:** %.2fx\n\n"+
			"%s\n\n"+
			"_Basado en %d CFDIs sincronizados de %s._",
		trend, pesos(kpi.income), pesos(kpi.expense),
		kpi.margin(), kpi.coverageRatio(), advice,
		kpi.totalDocs, kpi.company.LegalName,
	)
}

func (s *InsightsService) answerLiquidity(kpi cfoContext) string {
	ratio := kpi.coverageRatio()
	level := "alto"
	switch {
	case ratio > 1.5:
		level = "bajo"
	case ratio > 1.0:
		level = "medio"
	}
	note := "(riesgo < 1.2x)"
	if ratio > 1.2 {
		note = "(saludable > 1.2x)"
	}
	return fmt.Sprintf(
		"Tu **riesgo de liquidez actual es %s**.\n\n"+
			"- **Ratio de cobertura:** %.2fx %s\n"+
			"- **Ingresos/Egresos:** %s / %s MXN\n\n"+
			"Consulta la proyección de 3 meses para el detalle por mes.\n\n"+
			"_Datos basados en %d CFDIs y tendencias históricas._",
		level, ratio, note, pesos(kpi.income), pesos(kpi.expense), kpi.totalDocs,
	)
}

func (s *InsightsService) answerConcentration(kpi cfoContext) string {
	share := 0.0
	name := ""
	if len(kpi.topClients) > 0 && kpi.windowIncome.IsPositive() {
		v, _ := kpi.topClients[0].Total.Div(kpi.windowIncome).Float64()
		share = v * 100
		name = kpi.topClients[0].Name
	}
	level := "moderada"
	detail := "Tu diversificación es razonable, pero siempre es bueno ampliar la base."
	if s.policy.Semaphore.ClassifyConcentration(share) == domain.SeverityRed {
		level = "alta - riesgo significativo"
		detail = fmt.Sprintf(
			"El top cliente (%s) representa el %.0f%% de tus ingresos. Si pierdes este cliente, tu flujo caería significativamente.",
			name, share,
		)
	}
	return fmt.Sprintf(
		"Tu **concentración de clientes es %s**.\n\n"+
			"%s\n\n"+
			"**Recomendaciones:**\n"+
			"1. Ningún cliente debería superar el %.0f%% de ingresos\n"+
			"2. Busca al menos 2-3 clientes nuevos este trimestre\n"+
			"3. Diversifica por sector para reducir riesgo sectorial\n\n"+
			"_Análisis basado en distribución de CFDIs de ingreso._",
		level, detail, s.policy.Semaphore.ConcentrationYellowPct,
	)
}

func (s *InsightsService) answerScore(kpi cfoContext) string {
	if kpi.snapshot == nil {
		return "No hay score disponible aún. Sincroniza tus CFDIs y vuelve a calcularlo."
	}
	b := buildBreakdown(kpi.snapshot, s.policy.Weights)
	verdict := "- Bueno"
	switch {
	case b.Total >= 80:
		verdict = "- Excelente"
	case b.Total < 65:
		verdict = "- Necesita mejora"
	}
	var lines strings.Builder
	for _, c := range b.Components {
		fmt.Fprintf(&lines, "- %s: %d/100 (peso %s)\n", c.Name, c.Value, c.Weight)
	}
	return fmt.Sprintf(
		"Tu **Score de Salud Financiera es %d/100** %s.\n\n"+
			"**Desglose de componentes:**\n%s\n"+
			"**Componente más fuerte:** %s\n"+
			"**Componente más débil:** %s",
		b.Total, verdict, lines.String(), b.Strongest, b.Weakest,
	)
}

func (s *InsightsService) answerCancellation(kpi cfoContext) string {
	rate := 0.0
	if docs := kpi.incomeDocs + kpi.voidedDocs; docs > 0 {
		rate = float64(kpi.voidedDocs) / float64(docs) * 100
	}
	state := "Verde"
	switch s.policy.Semaphore.ClassifyCancellation(rate) {
	case domain.SeverityYellow:
		state = "Amarillo"
	case domain.SeverityRed:
		state = "Rojo"
	}
	p := s.policy.Semaphore
	return fmt.Sprintf(
		"**Estado de CFDIs cancelados:**\n\n"+
			"- Tasa de cancelación: %.1f%%\n"+
			"- Estado del indicador: %s\n\n"+
			"**Umbrales del semáforo:**\n"+
			"- Verde: 0-%.0f%% de cancelaciones\n"+
			"- Amarillo: %.0f-%.0f%% de cancelaciones\n"+
			"- Rojo: >%.0f%% de cancelaciones\n\n"+
			"_Basado en CFDIs de los últimos 6 meses._",
		rate, state,
		p.CancellationYellowPct, p.CancellationYellowPct,
		p.CancellationRedPct, p.CancellationRedPct,
	)
}

func (s *InsightsService) answerSuppliers(kpi cfoContext) string {
	for _, a := range kpi.alerts {
		if a.Category == domain.AlertBlacklist {
			return fmt.Sprintf(
				"**Estado de proveedores EFOS (Art. 69-B CFF):**\n\n"+
					"- **%s**\n"+
					"- %s\n"+
					"- **Acción requerida:** Contactar al proveedor y preparar evidencia de operaciones reales\n\n"+
					"_Verificación contra lista Art. 69-B del SAT actualizada._",
				a.Title, a.Detail,
			)
		}
	}
	return "**Estado de proveedores EFOS (Art. 69-B CFF):**\n\n" +
		"- **Sin proveedores en lista EFOS.** Tu cartera de proveedores está limpia.\n\n" +
		"_Verificación contra lista Art. 69-B del SAT actualizada._"
}

// pesos renders a decimal as "$1,234,567" rounded to whole pesos.
func pesos(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-$" + s
	}
	return "$" + s
}
