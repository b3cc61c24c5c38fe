// Package quotations lists Supplier Quotations and reprices a draft line
// before submitting it.
package quotations

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
	Submit(ctx context.Context, ref erp.DocRef, mode erp.SubmitMode) error
	EnsureSubmitted(ctx context.Context, ref erp.DocRef, mode erp.SubmitMode) (bool, error)
}

// Service orchestrates quotation flows.
type Service struct {
	erp    ERPPort
	logger *slog.Logger
}

// NewService constructs the quotation service.
func NewService(port ERPPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{erp: port, logger: logger}
}

// Ref addresses a quotation by name.
func Ref(name string) erp.DocRef {
	return erp.DocRef{Doctype: erp.DoctypeSupplierQuotation, Name: name}
}

// List returns quotations with their items, optionally limited to one supplier.
func (s *Service) List(ctx context.Context, supplier string) ([]Quotation, error) {
	opts := erp.ListOptions{Fields: listFields()}
	if supplier = strings.TrimSpace(supplier); supplier != "" {
		opts.Filters = []erp.Filter{erp.Eq("supplier", supplier)}
	}
	rows, err := s.erp.List(ctx, erp.DoctypeSupplierQuotation, opts)
	if err != nil {
		return nil, err
	}
	grouped := erp.GroupRows(rows, listSpec)
	out := make([]Quotation, 0, len(grouped))
	for _, doc := range grouped {
		out = append(out, fromDocument(doc))
	}
	return out, nil
}

// UpdatePriceAndSubmit sets the rate of the first line carrying the item code,
// persists the quotation and submits it. A failed submit leaves the quotation
// saved and is reported as *erp.SubmitError.
func (s *Service) UpdatePriceAndSubmit(ctx context.Context, input UpdatePriceInput) error {
	ref := Ref(input.Quotation)
	doc, err := s.erp.Get(ctx, ref)
	if err != nil {
		return erp.FetchError(ref, err)
	}

	if input.Supplier != "" && input.Supplier != doc.String("supplier") {
		return fmt.Errorf("%w: quotation %s, supplier %s", erp.ErrOwnership, input.Quotation, input.Supplier)
	}

	item := firstItem(doc, input.ItemCode)
	if item == nil {
		return fmt.Errorf("%w: %s in quotation %s", erp.ErrItemNotFound, input.ItemCode, input.Quotation)
	}
	item["rate"] = input.Price

	if err := s.erp.Update(ctx, ref, doc); err != nil {
		if errors.Is(err, erp.ErrNoSession) {
			return err
		}
		return fmt.Errorf("%w: quotation %s: %v", erp.ErrPersist, input.Quotation, err)
	}

	if err := s.erp.Submit(ctx, ref, erp.SubmitRunMethod); err != nil {
		s.logger.Warn("quotation saved but not submitted",
			slog.String("quotation", input.Quotation),
			slog.Any("error", err))
		return &erp.SubmitError{Ref: ref, Err: err}
	}

	s.logger.Info("quotation repriced and submitted",
		slog.String("quotation", input.Quotation),
		slog.String("item_code", input.ItemCode),
		slog.Float64("rate", input.Price))
	return nil
}

// Resubmit submits a quotation left saved but unsubmitted. Already submitted
// quotations are left untouched.
func (s *Service) Resubmit(ctx context.Context, name string) (bool, error) {
	submitted, err := s.erp.EnsureSubmitted(ctx, Ref(name), erp.SubmitRunMethod)
	if err != nil {
		return submitted, err
	}
	if submitted {
		s.logger.Info("quotation resubmitted", slog.String("quotation", name))
	}
	return submitted, nil
}
