// Package dashboard aggregates the supplier-facing listings into one view.
package dashboard

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/erpnext-gateway/internal/procurement"
	"github.com/odyssey-erp/erpnext-gateway/internal/quotations"
)

// QuotationSource lists quotations.
type QuotationSource interface {
	List(ctx context.Context, supplier string) ([]quotations.Quotation, error)
}

// ProcurementSource lists orders and invoices.
type ProcurementSource interface {
	ListPurchaseOrders(ctx context.Context, supplier string) ([]procurement.PurchaseOrder, error)
	ListInvoices(ctx context.Context, supplier string) ([]procurement.Invoice, error)
}

// Outstanding is the unpaid total of one currency.
type Outstanding struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Invoices int             `json:"invoices"`
}

// Summary is the dashboard payload.
type Summary struct {
	Supplier       string                      `json:"supplier,omitempty"`
	Quotations     []quotations.Quotation      `json:"quotations"`
	PurchaseOrders []procurement.PurchaseOrder `json:"purchase_orders"`
	Invoices       []procurement.Invoice       `json:"invoices"`
	Outstanding    []Outstanding               `json:"outstanding"`
}

// Service loads dashboard data.
type Service struct {
	quotations  QuotationSource
	procurement ProcurementSource
}

// NewService constructs the dashboard service.
func NewService(q QuotationSource, p ProcurementSource) *Service {
	return &Service{quotations: q, procurement: p}
}

// Load fetches the three listings concurrently. The first failure cancels the
// remaining fetches and is returned unchanged.
func (s *Service) Load(ctx context.Context, supplier string) (Summary, error) {
	summary := Summary{Supplier: supplier}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.quotations.List(ctx, supplier)
		if err != nil {
			return err
		}
		summary.Quotations = list
		return nil
	})

	g.Go(func() error {
		list, err := s.procurement.ListPurchaseOrders(ctx, supplier)
		if err != nil {
			return err
		}
		summary.PurchaseOrders = list
		return nil
	})

	g.Go(func() error {
		list, err := s.procurement.ListInvoices(ctx, supplier)
		if err != nil {
			return err
		}
		summary.Invoices = list
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	summary.Outstanding = outstandingByCurrency(summary.Invoices)
	return summary, nil
}

func outstandingByCurrency(invoices []procurement.Invoice) []Outstanding {
	totals := make(map[string]*Outstanding)
	for _, inv := range invoices {
		amount := decimal.NewFromFloat(inv.OutstandingAmount)
		if !amount.IsPositive() {
			continue
		}
		entry, ok := totals[inv.Currency]
		if !ok {
			entry = &Outstanding{Currency: inv.Currency, Amount: decimal.Zero}
			totals[inv.Currency] = entry
		}
		entry.Amount = entry.Amount.Add(amount)
		entry.Invoices++
	}
	out := make([]Outstanding, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
