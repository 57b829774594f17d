package postgrest

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/infra/resilience"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// invoiceRow maps the invoices table columns.
type invoiceRow struct {
	ID            string          `json:"id"`
	Folio         string          `json:"folio"`
	Series        string          `json:"series"`
	Kind          string          `json:"kind"`
	Status        string          `json:"status"`
	IssuerTaxID   string          `json:"issuer_tax_id"`
	IssuerName    string          `json:"issuer_name"`
	ReceiverTaxID string          `json:"receiver_tax_id"`
	ReceiverName  string          `json:"receiver_name"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	IssuedAt      time.Time       `json:"issued_at"`
	StampedAt     *time.Time      `json:"stamped_at"`
	VoidedAt      *time.Time      `json:"voided_at"`
	UsageCode     string          `json:"usage_code"`
	PaymentMethod string          `json:"payment_method"`
	PaymentForm   string          `json:"payment_form"`
	CompanyID     string          `json:"company_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (r invoiceRow) toDomain() domain.Invoice {
	return domain.Invoice{
		ID:            r.ID,
		Folio:         r.Folio,
		Series:        r.Series,
		Kind:          domain.InvoiceKind(r.Kind),
		Status:        domain.InvoiceStatus(r.Status),
		IssuerTaxID:   r.IssuerTaxID,
		IssuerName:    r.IssuerName,
		ReceiverTaxID: r.ReceiverTaxID,
		ReceiverName:  r.ReceiverName,
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		Total:         r.Total,
		Currency:      r.Currency,
		IssuedAt:      r.IssuedAt,
		StampedAt:     r.StampedAt,
		VoidedAt:      r.VoidedAt,
		UsageCode:     r.UsageCode,
		PaymentMethod: r.PaymentMethod,
		PaymentForm:   r.PaymentForm,
		CompanyID:     r.CompanyID,
		CreatedAt:     r.CreatedAt,
	}
}

// ledgerConditions renders a LedgerFilter as PostgREST query conditions.
func ledgerConditions(f port.LedgerFilter) []string {
	var conds []string
	if f.CompanyID != "" {
		conds = append(conds, "company_id=eq."+url.QueryEscape(f.CompanyID))
	}
	if f.Kind != "" {
		conds = append(conds, "kind=eq."+url.QueryEscape(string(f.Kind)))
	}
	if f.Status != "" {
		conds = append(conds, "status=eq."+url.QueryEscape(string(f.Status)))
	}
	if !f.From.IsZero() {
		conds = append(conds, "issued_at=gte."+url.QueryEscape(f.From.UTC().Format(time.RFC3339)))
	}
	if !f.To.IsZero() {
		conds = append(conds, "issued_at=lt."+url.QueryEscape(f.To.UTC().Format(time.RFC3339)))
	}
	if f.IssuerTaxID != "" {
		conds = append(conds, "issuer_tax_id=eq."+url.QueryEscape(f.IssuerTaxID))
	}
	if f.ReceiverTaxID != "" {
		conds = append(conds, "receiver_tax_id=eq."+url.QueryEscape(f.ReceiverTaxID))
	}
	if f.PaymentMethod != "" {
		conds = append(conds, "payment_method=eq."+url.QueryEscape(f.PaymentMethod))
	}
	return conds
}

// SumTotal fetches the matching totals column and sums it client-side.
// PostgREST does not expose SQL aggregates over arbitrary filters, so
// the adapter follows the fetch-then-fold approach used for counters.
func (c *Client) SumTotal(ctx context.Context, f port.LedgerFilter) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.SumTotal")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", f.CompanyID))

	path := "invoices?select=total"
	if conds := ledgerConditions(f); len(conds) > 0 {
		path += "&" + strings.Join(conds, "&")
	}

	var rows []struct {
		Total decimal.Decimal `json:"total"`
	}
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return decimal.Zero, c.storeErr("postgrest/invoices", err)
	}

	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Total)
	}
	return sum, nil
}

// CountInvoices counts matching invoices via the Content-Range header.
func (c *Client) CountInvoices(ctx context.Context, f port.LedgerFilter) (int, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.CountInvoices")
	defer span.End()

	path := "invoices?select=id"
	if conds := ledgerConditions(f); len(conds) > 0 {
		path += "&" + strings.Join(conds, "&")
	}

	var count int
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			n, err := c.doCount(ctx, path)
			if err != nil {
				return err
			}
			count = n
			return nil
		})
	})
	if err != nil {
		return 0, c.storeErr("postgrest/invoices", err)
	}
	return count, nil
}

// TopCounterparties aggregates totals per counterparty client-side,
// ordered descending by total.
func (c *Client) TopCounterparties(ctx context.Context, f port.LedgerFilter, group port.CounterpartyGroup, limit int) ([]domain.CounterpartyTotal, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.TopCounterparties")
	defer span.End()
	span.SetAttributes(attribute.String("group", string(group)))

	sel := "receiver_tax_id,receiver_name,total"
	if group == port.GroupByIssuer {
		sel = "issuer_tax_id,issuer_name,total"
	}

	// Rows fetched in creation order so that ties keep record order below.
	path := "invoices?select=" + sel + "&order=created_at.asc"
	if conds := ledgerConditions(f); len(conds) > 0 {
		path += "&" + strings.Join(conds, "&")
	}

	var rows []invoiceRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/invoices", err)
	}

	byID := make(map[string]int)
	var out []domain.CounterpartyTotal
	for _, r := range rows {
		taxID, name := r.ReceiverTaxID, r.ReceiverName
		if group == port.GroupByIssuer {
			taxID, name = r.IssuerTaxID, r.IssuerName
		}
		idx, ok := byID[taxID]
		if !ok {
			idx = len(out)
			byID[taxID] = idx
			out = append(out, domain.CounterpartyTotal{TaxID: taxID, Name: name})
		}
		out[idx].Total = out[idx].Total.Add(r.Total)
		out[idx].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListInvoices returns one page of matching invoices, newest first.
func (c *Client) ListInvoices(ctx context.Context, f port.LedgerFilter, page, pageSize int) (*domain.InvoicePage, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.ListInvoices")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", f.CompanyID))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	conds := ledgerConditions(f)

	total, err := c.CountInvoices(ctx, f)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("invoices?select=*&order=issued_at.desc&limit=%d&offset=%d", pageSize, (page-1)*pageSize)
	if len(conds) > 0 {
		path += "&" + strings.Join(conds, "&")
	}

	var rows []invoiceRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/invoices", err)
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, r := range rows {
		invoices = append(invoices, r.toDomain())
	}

	return &domain.InvoicePage{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Invoices: invoices,
	}, nil
}
