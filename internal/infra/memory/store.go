// Package memory provides an in-memory storage backend. It backs
// demo deployments (paired with the seeder) and unit tests, and
// implements the same ports as the PostgREST and Postgres adapters.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// Store keeps all data in process memory, guarded by a single RWMutex.
type Store struct {
	mu        sync.RWMutex
	invoices  []domain.Invoice
	companies map[string]domain.Company
	scores    map[string][]domain.HealthScoreSnapshot
	alerts    map[string][]domain.FiscalAlert
	users     map[string]domain.User
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		companies: make(map[string]domain.Company),
		scores:    make(map[string][]domain.HealthScoreSnapshot),
		alerts:    make(map[string][]domain.FiscalAlert),
		users:     make(map[string]domain.User),
	}
}

// Ping always succeeds for the in-memory backend.
func (s *Store) Ping(ctx context.Context) error { return nil }

func matches(inv domain.Invoice, f port.LedgerFilter) bool {
	if f.CompanyID != "" && inv.CompanyID != f.CompanyID {
		return false
	}
	if f.Kind != "" && inv.Kind != f.Kind {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && inv.IssuedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !inv.IssuedAt.Before(f.To) {
		return false
	}
	if f.IssuerTaxID != "" && inv.IssuerTaxID != f.IssuerTaxID {
		return false
	}
	if f.ReceiverTaxID != "" && inv.ReceiverTaxID != f.ReceiverTaxID {
		return false
	}
	if f.PaymentMethod != "" && inv.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// SumTotal sums invoice totals matching the filter.
func (s *Store) SumTotal(ctx context.Context, f port.LedgerFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, inv := range s.invoices {
		if matches(inv, f) {
			sum = sum.Add(inv.Total)
		}
	}
	return sum, nil
}

// CountInvoices counts invoices matching the filter.
func (s *Store) CountInvoices(ctx context.Context, f port.LedgerFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, inv := range s.invoices {
		if matches(inv, f) {
			n++
		}
	}
	return n, nil
}

// TopCounterparties aggregates totals per counterparty, ordered by
// total descending.
func (s *Store) TopCounterparties(ctx context.Context, f port.LedgerFilter, group port.CounterpartyGroup, limit int) ([]domain.CounterpartyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// First-encounter order so that ties keep record order after the sort.
	byID := make(map[string]int)
	var out []domain.CounterpartyTotal
	for _, inv := range s.invoices {
		if !matches(inv, f) {
			continue
		}
		taxID, name := inv.ReceiverTaxID, inv.ReceiverName
		if group == port.GroupByIssuer {
			taxID, name = inv.IssuerTaxID, inv.IssuerName
		}
		idx, ok := byID[taxID]
		if !ok {
			idx = len(out)
			byID[taxID] = idx
			out = append(out, domain.CounterpartyTotal{TaxID: taxID, Name: name})
		}
		out[idx].Total = out[idx].Total.Add(inv.Total)
		out[idx].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListInvoices returns one page of matching invoices, newest first.
func (s *Store) ListInvoices(ctx context.Context, f port.LedgerFilter, page, pageSize int) (*domain.InvoicePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var matched []domain.Invoice
	for _, inv := range s.invoices {
		if matches(inv, f) {
			matched = append(matched, inv)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].IssuedAt.After(matched[j].IssuedAt) })

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &domain.InvoicePage{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Invoices: matched[start:end],
	}, nil
}

// AddInvoices appends invoices. Used by the seeder and tests.
func (s *Store) AddInvoices(invoices ...domain.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append(s.invoices, invoices...)
}

// AddCompany registers a company. Used by the seeder and tests.
func (s *Store) AddCompany(c domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = c
}

// AddAlert appends a fiscal alert. Used by the seeder and tests.
func (s *Store) AddAlert(a domain.FiscalAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.CompanyID] = append(s.alerts[a.CompanyID], a)
}

// GetCompany fetches a single company by ID.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[companyID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return &c, nil
}

// ListCompanies returns all companies, optionally filtered by demo
// scenario, sorted by legal name.
func (s *Store) ListCompanies(ctx context.Context, scenario string) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Company
	for _, c := range s.companies {
		if scenario != "" && c.DemoScenario != scenario {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LegalName < out[j].LegalName })
	return out, nil
}

// LatestScore returns the most recent snapshot, or (nil, nil) when the
// company has no snapshot yet.
func (s *Store) LatestScore(ctx context.Context, companyID string) (*domain.HealthScoreSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.scores[companyID]
	if len(snaps) == 0 {
		return nil, nil
	}

	latest := snaps[0]
	for _, snap := range snaps[1:] {
		if snap.CreatedAt.After(latest.CreatedAt) {
			latest = snap
		}
	}
	return &latest, nil
}

// InsertScore persists a new score snapshot.
func (s *Store) InsertScore(ctx context.Context, snap *domain.HealthScoreSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *snap
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.scores[snap.CompanyID] = append(s.scores[snap.CompanyID], stored)
	return nil
}

// AlertsFor returns alerts for a company, newest first.
func (s *Store) AlertsFor(ctx context.Context, companyID string) ([]domain.FiscalAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]domain.FiscalAlert, len(s.alerts[companyID]))
	copy(alerts, s.alerts[companyID])
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].CreatedAt.After(alerts[j].CreatedAt) })
	return alerts, nil
}

// CountPendingAlerts counts unresolved alerts for a company.
func (s *Store) CountPendingAlerts(ctx context.Context, companyID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.alerts[companyID] {
		if a.Resolution == domain.ResolutionPending {
			n++
		}
	}
	return n, nil
}

// GetUserByEmail fetches a user by email (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: email}
}

// GetUserByID fetches a user by ID.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &u, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *user
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = stored
	return nil
}
