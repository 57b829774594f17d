// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

// CounterpartyGroup selects which side of an invoice a counterparty
// aggregation groups by.
type CounterpartyGroup string

const (
	GroupByIssuer   CounterpartyGroup = "issuer"
	GroupByReceiver CounterpartyGroup = "receiver"
)

// LedgerFilter narrows ledger queries. Zero-value fields are ignored.
type LedgerFilter struct {
	CompanyID     string
	Kind          domain.InvoiceKind
	Status        domain.InvoiceStatus
	From          time.Time
	To            time.Time
	IssuerTaxID   string
	ReceiverTaxID string
	PaymentMethod string
}

// InvoiceLedger defines read operations over the invoice ledger.
// Implemented by the PostgREST, Postgres and in-memory adapters.
type InvoiceLedger interface {
	// SumTotal returns the sum of invoice totals matching the filter.
	SumTotal(ctx context.Context, f LedgerFilter) (decimal.Decimal, error)

	// CountInvoices returns the number of invoices matching the filter.
	CountInvoices(ctx context.Context, f LedgerFilter) (int, error)

	// TopCounterparties aggregates invoice totals per counterparty,
	// ordered by total descending, up to limit entries.
	TopCounterparties(ctx context.Context, f LedgerFilter, group CounterpartyGroup, limit int) ([]domain.CounterpartyTotal, error)

	// ListInvoices returns a page of invoices matching the filter,
	// newest first.
	ListInvoices(ctx context.Context, f LedgerFilter, page, pageSize int) (*domain.InvoicePage, error)
}

// CompanyStore defines data operations for the company registry.
type CompanyStore interface {
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	ListCompanies(ctx context.Context, scenario string) ([]domain.Company, error)
}

// InsightStore persists health score snapshots and fiscal alerts.
type InsightStore interface {
	// LatestScore returns the most recent snapshot for the company,
	// or (nil, nil) when none exists yet.
	LatestScore(ctx context.Context, companyID string) (*domain.HealthScoreSnapshot, error)
	InsertScore(ctx context.Context, snap *domain.HealthScoreSnapshot) error

	// AlertsFor returns the company's alerts, newest first.
	AlertsFor(ctx context.Context, companyID string) ([]domain.FiscalAlert, error)
	CountPendingAlerts(ctx context.Context, companyID string) (int, error)
}

// AuthStore defines data operations for the authentication system.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}

// DemoSeeder loads synthetic demo data into a backend that supports it.
type DemoSeeder interface {
	Seed(ctx context.Context, scenario string) (*domain.SeedStats, error)
	Scenarios() []domain.ScenarioInfo
}
