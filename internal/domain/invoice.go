package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind classifies a fiscal document by direction.
// Only income and expense documents participate in analytics.
type InvoiceKind string

const (
	KindIncome   InvoiceKind = "income"
	KindExpense  InvoiceKind = "expense"
	KindTransfer InvoiceKind = "transfer"
	KindPayroll  InvoiceKind = "payroll"
	KindPayment  InvoiceKind = "payment"
)

// InvoiceStatus is the lifecycle state of a fiscal document.
type InvoiceStatus string

const (
	StatusValid  InvoiceStatus = "valid"
	StatusVoided InvoiceStatus = "voided"
)

// Invoice is an immutable fiscal document (CFDI-style). The analytics
// layer only ever reads invoices; ingestion owns their lifecycle.
type Invoice struct {
	ID     string `json:"id"` // document UUID
	Folio  string `json:"folio,omitempty"`
	Series string `json:"series,omitempty"`

	Kind   InvoiceKind   `json:"kind"`
	Status InvoiceStatus `json:"status"`

	IssuerTaxID   string `json:"issuer_tax_id"`
	IssuerName    string `json:"issuer_name,omitempty"`
	ReceiverTaxID string `json:"receiver_tax_id"`
	ReceiverName  string `json:"receiver_name,omitempty"`

	// Monetary amounts are exact decimals; total ≈ subtotal + tax
	// within provider rounding tolerance, and total ≥ 0.
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`

	IssuedAt  time.Time  `json:"issued_at"`
	StampedAt *time.Time `json:"stamped_at,omitempty"`
	VoidedAt  *time.Time `json:"voided_at,omitempty"`

	UsageCode     string `json:"usage_code,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"` // PUE, PPD
	PaymentForm   string `json:"payment_form,omitempty"`

	CompanyID string    `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
}

// InvoicePage is a paginated invoice listing.
type InvoicePage struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Invoices []Invoice `json:"invoices"`
}
