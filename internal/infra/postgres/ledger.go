package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

// ledgerWhere renders a LedgerFilter as a WHERE clause with
// positional args.
func ledgerWhere(f port.LedgerFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(expr string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if f.CompanyID != "" {
		add("company_id = $%d", f.CompanyID)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("issued_at >= $%d", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("issued_at < $%d", f.To.UTC())
	}
	if f.IssuerTaxID != "" {
		add("issuer_tax_id = $%d", f.IssuerTaxID)
	}
	if f.ReceiverTaxID != "" {
		add("receiver_tax_id = $%d", f.ReceiverTaxID)
	}
	if f.PaymentMethod != "" {
		add("payment_method = $%d", f.PaymentMethod)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// SumTotal sums invoice totals in SQL. The numeric result is scanned
// as text to avoid float rounding.
func (s *Store) SumTotal(ctx context.Context, f port.LedgerFilter) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "Postgres.SumTotal")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", f.CompanyID))

	where, args := ledgerWhere(f)

	var raw string
	err := s.pool.QueryRow(ctx, "SELECT COALESCE(SUM(total), 0)::text FROM invoices"+where, args...).Scan(&raw)
	if err != nil {
		return decimal.Zero, s.storeErr("postgres/invoices", err)
	}

	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, s.storeErr("postgres/invoices", err)
	}
	return sum, nil
}

// CountInvoices counts matching invoices.
func (s *Store) CountInvoices(ctx context.Context, f port.LedgerFilter) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CountInvoices")
	defer span.End()

	where, args := ledgerWhere(f)

	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices"+where, args...).Scan(&n)
	if err != nil {
		return 0, s.storeErr("postgres/invoices", err)
	}
	return n, nil
}

// TopCounterparties groups invoice totals per counterparty in SQL.
func (s *Store) TopCounterparties(ctx context.Context, f port.LedgerFilter, group port.CounterpartyGroup, limit int) ([]domain.CounterpartyTotal, error) {
	ctx, span := tracer.Start(ctx, "Postgres.TopCounterparties")
	defer span.End()
	span.SetAttributes(attribute.String("group", string(group)))

	idCol, nameCol := "receiver_tax_id", "receiver_name"
	if group == port.GroupByIssuer {
		idCol, nameCol = "issuer_tax_id", "issuer_name"
	}

	where, args := ledgerWhere(f)
	args = append(args, limit)

	query := fmt.Sprintf(
		"SELECT %s, MAX(%s), SUM(total)::text, COUNT(*) FROM invoices%s GROUP BY %s ORDER BY SUM(total) DESC, MIN(created_at) ASC LIMIT $%d",
		idCol, nameCol, where, idCol, len(args),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("postgres/invoices", err)
	}
	defer rows.Close()

	var out []domain.CounterpartyTotal
	for rows.Next() {
		var cp domain.CounterpartyTotal
		var raw string
		if err := rows.Scan(&cp.TaxID, &cp.Name, &raw, &cp.Count); err != nil {
			return nil, s.storeErr("postgres/invoices", err)
		}
		if cp.Total, err = decimal.NewFromString(raw); err != nil {
			return nil, s.storeErr("postgres/invoices", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("postgres/invoices", err)
	}
	return out, nil
}

// ListInvoices returns one page of matching invoices, newest first.
func (s *Store) ListInvoices(ctx context.Context, f port.LedgerFilter, page, pageSize int) (*domain.InvoicePage, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListInvoices")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", f.CompanyID))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total, err := s.CountInvoices(ctx, f)
	if err != nil {
		return nil, err
	}

	where, args := ledgerWhere(f)
	args = append(args, pageSize, (page-1)*pageSize)

	query := fmt.Sprintf(`
		SELECT id, folio, series, kind, status,
		       issuer_tax_id, issuer_name, receiver_tax_id, receiver_name,
		       subtotal::text, tax::text, total::text, currency,
		       issued_at, stamped_at, voided_at,
		       usage_code, payment_method, payment_form, company_id, created_at
		FROM invoices%s
		ORDER BY issued_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("postgres/invoices", err)
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, pageSize)
	for rows.Next() {
		var inv domain.Invoice
		var subtotal, tax, totalStr string
		var kind, status string
		var stampedAt, voidedAt *time.Time

		if err := rows.Scan(
			&inv.ID, &inv.Folio, &inv.Series, &kind, &status,
			&inv.IssuerTaxID, &inv.IssuerName, &inv.ReceiverTaxID, &inv.ReceiverName,
			&subtotal, &tax, &totalStr, &inv.Currency,
			&inv.IssuedAt, &stampedAt, &voidedAt,
			&inv.UsageCode, &inv.PaymentMethod, &inv.PaymentForm, &inv.CompanyID, &inv.CreatedAt,
		); err != nil {
			return nil, s.storeErr("postgres/invoices", err)
		}

		inv.Kind = domain.InvoiceKind(kind)
		inv.Status = domain.InvoiceStatus(status)
		inv.StampedAt = stampedAt
		inv.VoidedAt = voidedAt
		if inv.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, s.storeErr("postgres/invoices", err)
		}
		if inv.Tax, err = decimal.NewFromString(tax); err != nil {
			return nil, s.storeErr("postgres/invoices", err)
		}
		if inv.Total, err = decimal.NewFromString(totalStr); err != nil {
			return nil, s.storeErr("postgres/invoices", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeErr("postgres/invoices", err)
	}

	return &domain.InvoicePage{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Invoices: invoices,
	}, nil
}
