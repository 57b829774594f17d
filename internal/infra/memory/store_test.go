package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poa-mx/poa-insights-go/internal/domain"
	"github.com/poa-mx/poa-insights-go/internal/port"
)

func clientInvoice(id, taxID, name, total string, issued time.Time) domain.Invoice {
	return domain.Invoice{
		ID:            id,
		Kind:          domain.KindIncome,
		Status:        domain.StatusValid,
		ReceiverTaxID: taxID,
		ReceiverName:  name,
		Total:         decimal.RequireFromString(total),
		Currency:      "MXN",
		IssuedAt:      issued,
		CompanyID:     "c-1",
		CreatedAt:     issued,
	}
}

func TestTopCounterparties_TiesKeepInsertionOrder(t *testing.T) {
	store := NewStore()
	issued := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	store.AddInvoices(
		clientInvoice("inv-1", "AAA010101AAA", "Alfa", "500", issued),
		clientInvoice("inv-2", "BBB010101BBB", "Beta", "500", issued.Add(time.Hour)),
		clientInvoice("inv-3", "CCC010101CCC", "Gama", "500", issued.Add(2*time.Hour)),
	)

	filter := port.LedgerFilter{CompanyID: "c-1", Kind: domain.KindIncome, Status: domain.StatusValid}
	for run := 0; run < 10; run++ {
		got, err := store.TopCounterparties(context.Background(), filter, port.GroupByReceiver, 5)
		if err != nil {
			t.Fatalf("TopCounterparties: %v", err)
		}
		want := []string{"AAA010101AAA", "BBB010101BBB", "CCC010101CCC"}
		for i, taxID := range want {
			if got[i].TaxID != taxID {
				t.Fatalf("run %d: position %d = %s, want %s", run, i, got[i].TaxID, taxID)
			}
		}
	}
}

func TestTopCounterparties_SortsTiesBelowLargerTotals(t *testing.T) {
	store := NewStore()
	issued := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	store.AddInvoices(
		clientInvoice("inv-1", "AAA010101AAA", "Alfa", "200", issued),
		clientInvoice("inv-2", "BBB010101BBB", "Beta", "900", issued),
		clientInvoice("inv-3", "CCC010101CCC", "Gama", "200", issued),
	)

	filter := port.LedgerFilter{CompanyID: "c-1", Kind: domain.KindIncome, Status: domain.StatusValid}
	got, err := store.TopCounterparties(context.Background(), filter, port.GroupByReceiver, 5)
	if err != nil {
		t.Fatalf("TopCounterparties: %v", err)
	}
	wantOrder := []string{"BBB010101BBB", "AAA010101AAA", "CCC010101CCC"}
	for i, taxID := range wantOrder {
		if got[i].TaxID != taxID {
			t.Fatalf("position %d = %s, want %s (%s)", i, got[i].TaxID, taxID, fmt.Sprint(got))
		}
	}
}
