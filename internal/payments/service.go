// Package payments records supplier payments against purchase invoices.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

// ERPPort describes the upstream operations used by Service.
type ERPPort interface {
	Get(ctx context.Context, ref erp.DocRef) (erp.Document, error)
	Create(ctx context.Context, doctype string, doc erp.Document) (string, error)
	Submit(ctx context.Context, ref erp.DocRef, mode erp.SubmitMode) error
	EnsureSubmitted(ctx context.Context, ref erp.DocRef, mode erp.SubmitMode) (bool, error)
}

// Service orchestrates payment creation.
type Service struct {
	erp    ERPPort
	logger *slog.Logger
}

// NewService constructs the payment service.
func NewService(port ERPPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{erp: port, logger: logger}
}

// Ref addresses a payment entry by name.
func Ref(name string) erp.DocRef {
	return erp.DocRef{Doctype: erp.DoctypePaymentEntry, Name: name}
}

// Create validates the payment against the invoice, creates the Payment
// Entry and submits it. Every check runs before anything is written. A failed
// submit leaves the draft entry in place and is reported as *erp.SubmitError.
func (s *Service) Create(ctx context.Context, input CreateInput) (Result, error) {
	invoiceRef := erp.DocRef{Doctype: erp.DoctypePurchaseInvoice, Name: input.Invoice}
	invoice, err := s.erp.Get(ctx, invoiceRef)
	if err != nil {
		return Result{}, erp.FetchError(invoiceRef, err)
	}

	supplier := invoice.String("supplier")
	if input.Supplier != "" && input.Supplier != supplier {
		return Result{}, fmt.Errorf("%w: invoice %s, supplier %s", erp.ErrOwnership, input.Invoice, input.Supplier)
	}

	if !input.Amount.IsPositive() {
		return Result{}, fmt.Errorf("%w: payment amount must be positive", erp.ErrInvalidInput)
	}
	outstandingValue, ok := invoice.Float("outstanding_amount")
	if !ok {
		return Result{}, fmt.Errorf("%w: invoice %s has no outstanding amount", erp.ErrUnexpected, input.Invoice)
	}
	outstanding := decimal.NewFromFloat(outstandingValue)
	if input.Amount.GreaterThan(outstanding) {
		return Result{}, &erp.OverpaymentError{Amount: input.Amount.String(), Outstanding: outstanding.String()}
	}
	remaining := outstanding.Sub(input.Amount)

	currency := invoice.String("currency")
	if currency == "" {
		currency = DefaultCurrency
	}

	account, err := ResolveAccount(input.AccountKey)
	if err != nil {
		return Result{}, err
	}
	account.Currency, err = s.accountCurrency(ctx, account.Ledger)
	if err != nil {
		return Result{}, err
	}
	if account.Currency != currency {
		return Result{}, fmt.Errorf("%w: invoice is in %s but account is in %s", erp.ErrCurrencyMismatch, currency, account.Currency)
	}

	entry := Entry{
		Party:       supplier,
		Amount:      input.Amount,
		Remaining:   remaining,
		ModeOfPay:   input.AccountKey,
		PostingDate: input.PostingDate,
		Account:     account,
		ReferenceNo: input.ReferenceNo,
		Invoice:     input.Invoice,
	}
	name, err := s.erp.Create(ctx, erp.DoctypePaymentEntry, entry.Document())
	if err != nil {
		if errors.Is(err, erp.ErrNoSession) {
			return Result{}, err
		}
		if errors.Is(err, erp.ErrTransport) {
			// the entry may exist upstream; keep the transport kind visible
			return Result{}, fmt.Errorf("%w: payment entry for %s: %w", erp.ErrCreate, input.Invoice, err)
		}
		return Result{}, fmt.Errorf("%w: payment entry for %s: %v", erp.ErrCreate, input.Invoice, err)
	}

	if err := s.erp.Submit(ctx, Ref(name), erp.SubmitDocStatus); err != nil {
		s.logger.Warn("payment entry created but not submitted",
			slog.String("payment_entry", name),
			slog.String("invoice", input.Invoice),
			slog.Any("error", err))
		return Result{}, &erp.SubmitError{Ref: Ref(name), Err: err}
	}

	result := Result{
		PaymentEntry: name,
		Invoice:      input.Invoice,
		Paid:         input.Amount,
		Remaining:    remaining,
		Currency:     currency,
		FullyPaid:    remaining.IsZero(),
		Message:      resultMessage(remaining, currency),
	}
	s.logger.Info("payment submitted",
		slog.String("payment_entry", name),
		slog.String("invoice", input.Invoice),
		slog.String("amount", input.Amount.String()),
		slog.String("remaining", remaining.String()))
	return result, nil
}

func (s *Service) accountCurrency(ctx context.Context, ledger string) (string, error) {
	doc, err := s.erp.Get(ctx, erp.DocRef{Doctype: erp.DoctypeAccount, Name: ledger})
	if err != nil {
		if errors.Is(err, erp.ErrNoSession) || errors.Is(err, erp.ErrSessionStore) || errors.Is(err, erp.ErrTransport) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %v", erp.ErrAccountNotFound, ledger, err)
	}
	if currency := doc.String("account_currency"); currency != "" {
		return currency, nil
	}
	return DefaultCurrency, nil
}

// Resubmit submits a payment entry left created but unsubmitted. It reports
// whether a submit call was issued.
func (s *Service) Resubmit(ctx context.Context, name string) (bool, error) {
	submitted, err := s.erp.EnsureSubmitted(ctx, Ref(name), erp.SubmitDocStatus)
	if err != nil {
		return submitted, err
	}
	if submitted {
		s.logger.Info("payment entry resubmitted", slog.String("payment_entry", name))
	}
	return submitted, nil
}
