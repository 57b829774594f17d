package service

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/cache"
	"github.com/poa-mx/poa-insights-go/internal/infra/memory"
	"github.com/poa-mx/poa-insights-go/internal/infra/observability"
)

// Reference instant for every service test. Mid-month so the weekly
// balance cuts and previous-month windows are all well-defined.
var testNow = time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC)

const testCompanyID = "c0000000-0000-0000-0000-000000000001"

func newTestService(store *memory.Store) *InsightsService {
	return NewInsightsService(
		store,
		store,
		store,
		domain.DefaultPolicy(),
		cache.New[*domain.DashboardStats](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func newTestCompany() domain.Company {
	return domain.Company{
		ID:             testCompanyID,
		TaxID:          "TST010101AAA",
		LegalName:      "Comercializadora de Prueba",
		Classification: domain.ClassStable,
		CreatedAt:      testNow.AddDate(-1, 0, 0),
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// testInvoice builds a minimal valid document for the ledger.
func testInvoice(id string, kind domain.InvoiceKind, total string, issued time.Time) domain.Invoice {
	t := dec(total)
	tax := t.Div(decimal.NewFromFloat(1.16)).Mul(decimal.NewFromFloat(0.16)).Round(2)
	inv := domain.Invoice{
		ID:            id,
		Kind:          kind,
		Status:        domain.StatusValid,
		Subtotal:      t.Sub(tax),
		Tax:           tax,
		Total:         t,
		Currency:      "MXN",
		IssuedAt:      issued,
		PaymentMethod: "PUE",
		CompanyID:     testCompanyID,
		CreatedAt:     issued,
	}
	if kind == domain.KindIncome {
		inv.IssuerTaxID = "TST010101AAA"
		inv.ReceiverTaxID = "CLI010101AAA"
		inv.ReceiverName = "Cliente Uno"
	} else {
		inv.IssuerTaxID = "PRV010101AAA"
		inv.IssuerName = "Proveedor Uno"
		inv.ReceiverTaxID = "TST010101AAA"
	}
	return inv
}
