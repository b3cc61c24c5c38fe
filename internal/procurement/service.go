// Package procurement exposes supplier, purchase order and purchase invoice
// records held by the ERP.
package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

// ERPPort describes the upstream operations used by Service.
type ERPPort interface {
	List(ctx context.Context, doctype string, opts erp.ListOptions) ([]erp.Document, error)
	Get(ctx context.Context, ref erp.DocRef) (erp.Document, error)
	Update(ctx context.Context, ref erp.DocRef, doc erp.Document) error
}

// Service serves procurement records.
type Service struct {
	erp    ERPPort
	logger *slog.Logger
}

// NewService constructs procurement service.
func NewService(port ERPPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{erp: port, logger: logger}
}

// InvoiceRef addresses a purchase invoice by name.
func InvoiceRef(name string) erp.DocRef {
	return erp.DocRef{Doctype: erp.DoctypePurchaseInvoice, Name: name}
}

func supplierFilter(supplier string) []erp.Filter {
	if supplier = strings.TrimSpace(supplier); supplier == "" {
		return nil
	}
	return []erp.Filter{erp.Eq("supplier", supplier)}
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.erp.List(ctx, erp.DoctypeSupplier, erp.ListOptions{Fields: supplierFields})
	if err != nil {
		return nil, err
	}
	out := make([]Supplier, 0, len(rows))
	for _, row := range rows {
		out = append(out, supplierFrom(row))
	}
	return out, nil
}

// ListPurchaseOrders returns purchase orders, optionally for one supplier.
func (s *Service) ListPurchaseOrders(ctx context.Context, supplier string) ([]PurchaseOrder, error) {
	rows, err := s.erp.List(ctx, erp.DoctypePurchaseOrder, erp.ListOptions{Fields: orderFields, Filters: supplierFilter(supplier)})
	if err != nil {
		return nil, err
	}
	out := make([]PurchaseOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, orderFrom(row))
	}
	return out, nil
}

// ListInvoices returns purchase invoices, optionally for one supplier.
func (s *Service) ListInvoices(ctx context.Context, supplier string) ([]Invoice, error) {
	rows, err := s.erp.List(ctx, erp.DoctypePurchaseInvoice, erp.ListOptions{Fields: invoiceFields, Filters: supplierFilter(supplier)})
	if err != nil {
		return nil, err
	}
	out := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, InvoiceFrom(row))
	}
	return out, nil
}

// GetInvoiceDetails returns the full invoice document.
func (s *Service) GetInvoiceDetails(ctx context.Context, name string) (erp.Document, error) {
	ref := InvoiceRef(name)
	doc, err := s.erp.Get(ctx, ref)
	if err != nil {
		return nil, erp.FetchError(ref, err)
	}
	return doc, nil
}

// UpdateInvoiceStatus sets the status field of an invoice owned by supplier.
func (s *Service) UpdateInvoiceStatus(ctx context.Context, name, status, supplier string) error {
	ref := InvoiceRef(name)
	doc, err := s.erp.Get(ctx, ref)
	if err != nil {
		return erp.FetchError(ref, err)
	}
	if supplier != "" && supplier != doc.String("supplier") {
		return fmt.Errorf("%w: invoice %s, supplier %s", erp.ErrOwnership, name, supplier)
	}
	previous := doc.String("status")
	doc["status"] = status
	if err := s.erp.Update(ctx, ref, doc); err != nil {
		if errors.Is(err, erp.ErrNoSession) {
			return err
		}
		return fmt.Errorf("%w: invoice %s: %v", erp.ErrPersist, name, err)
	}
	s.logger.Info("invoice status updated",
		slog.String("invoice", name),
		slog.String("from", previous),
		slog.String("to", status))
	return nil
}
