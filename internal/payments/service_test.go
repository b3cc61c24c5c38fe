package payments

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/erp/erptest"
)

func newTestService(t *testing.T) (*Service, *erptest.Server) {
	t.Helper()
	srv := erptest.New(t)
	srv.AddUser("buyer", "pw")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := erp.NewClient(erp.Config{BaseURL: srv.URL}, erp.NewMemoryStore(), logger)
	_, err := client.Login(context.Background(), "buyer", "pw")
	require.NoError(t, err)

	srv.Put(erp.DoctypePurchaseInvoice, "PINV-0001", map[string]any{
		"supplier":           "SUP-1",
		"grand_total":        100.0,
		"outstanding_amount": 100.0,
		"currency":           "MAD",
		"status":             "Unpaid",
	})
	srv.Put(erp.DoctypeAccount, "Bank Account - AD", map[string]any{"account_currency": "MAD"})
	srv.Put(erp.DoctypeAccount, "1101 - Main Cash - AD - AD", map[string]any{"account_currency": "USD"})
	return NewService(client, logger), srv
}

func input(amount int64, account string) CreateInput {
	return CreateInput{
		Invoice:     "PINV-0001",
		Supplier:    "SUP-1",
		Amount:      decimal.NewFromInt(amount),
		PostingDate: "2025-06-01",
		AccountKey:  account,
	}
}

func TestCreateFullPayment(t *testing.T) {
	svc, srv := newTestService(t)

	in := input(100, "bank")
	in.ReferenceNo = "CHQ-77"
	result, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, result.FullyPaid)
	require.True(t, result.Remaining.IsZero())
	require.Equal(t, "MAD", result.Currency)
	require.Equal(t, "Payment submitted. Invoice fully paid.", result.Message)

	entries := srv.Docs(erp.DoctypePaymentEntry)
	require.Len(t, entries, 1)
	entry := erp.Document(entries[0])
	require.Equal(t, result.PaymentEntry, entry.String("name"))
	require.Equal(t, erp.DocStatusSubmitted, entry.Int("docstatus"))
	require.Equal(t, "Pay", entry.String("payment_type"))
	require.Equal(t, "Supplier", entry.String("party_type"))
	require.Equal(t, "SUP-1", entry.String("party"))
	require.Equal(t, "Bank Account - AD", entry.String("paid_from"))
	require.Equal(t, "MAD", entry.String("paid_from_account_currency"))
	require.Equal(t, "CHQ-77", entry.String("reference_no"))
	require.Equal(t, "bank", entry.String("mode_of_payment"))
	paid, _ := entry.Float("paid_amount")
	require.Equal(t, 100.0, paid)

	refs := entry.Children("references")
	require.Len(t, refs, 1)
	require.Equal(t, erp.DoctypePurchaseInvoice, refs[0].String("reference_doctype"))
	require.Equal(t, "PINV-0001", refs[0].String("reference_name"))
	remaining, _ := refs[0].Float("outstanding_amount")
	require.Equal(t, 0.0, remaining)
}

func TestCreatePartialPayment(t *testing.T) {
	svc, srv := newTestService(t)

	result, err := svc.Create(context.Background(), input(40, "BANK"))
	require.NoError(t, err)
	require.False(t, result.FullyPaid)
	require.True(t, result.Remaining.Equal(decimal.NewFromInt(60)))
	require.Equal(t, "Payment submitted. Remaining balance to pay: 60.00 MAD", result.Message)

	entry := erp.Document(srv.Docs(erp.DoctypePaymentEntry)[0])
	_, hasRef := entry["reference_no"]
	require.False(t, hasRef)
}

func TestCreateOverpaymentWritesNothing(t *testing.T) {
	svc, srv := newTestService(t)

	_, err := svc.Create(context.Background(), input(150, "bank"))
	require.ErrorIs(t, err, erp.ErrOverpayment)
	var over *erp.OverpaymentError
	require.ErrorAs(t, err, &over)
	require.Equal(t, "150", over.Amount)
	require.Equal(t, "100", over.Outstanding)
	require.Equal(t, "Payment amount 150 exceeds outstanding amount 100", err.Error())

	require.Empty(t, srv.CallsMatching(http.MethodPost, ""))
	require.Empty(t, srv.CallsMatching(http.MethodPut, ""))
}

func TestCreateCurrencyMismatch(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Put(erp.DoctypeAccount, "Bank Account - AD", map[string]any{"account_currency": "USD"})

	_, err := svc.Create(context.Background(), input(10, "bank"))
	require.ErrorIs(t, err, erp.ErrCurrencyMismatch)
	require.Contains(t, err.Error(), "invoice is in MAD but account is in USD")
	require.Empty(t, srv.CallsMatching(http.MethodPost, ""))
}

func TestCreateDefaultsMissingCurrencies(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Put(erp.DoctypePurchaseInvoice, "PINV-0002", map[string]any{"supplier": "SUP-1", "outstanding_amount": 50.0})
	srv.Put(erp.DoctypeAccount, "Bank Account - AD", map[string]any{})

	in := input(50, "bank")
	in.Invoice = "PINV-0002"
	result, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, DefaultCurrency, result.Currency)
}

func TestCreateRejections(t *testing.T) {
	svc, srv := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, input(10, "wire"))
	require.ErrorIs(t, err, erp.ErrInvalidAccount)

	_, err = svc.Create(ctx, input(0, "bank"))
	require.ErrorIs(t, err, erp.ErrInvalidInput)

	foreign := input(10, "bank")
	foreign.Supplier = "SUP-2"
	_, err = svc.Create(ctx, foreign)
	require.ErrorIs(t, err, erp.ErrOwnership)

	missing := input(10, "bank")
	missing.Invoice = "PINV-404"
	_, err = svc.Create(ctx, missing)
	require.ErrorIs(t, err, erp.ErrNotFound)

	// cash resolves to a ledger held in USD
	_, err = svc.Create(ctx, input(10, "cash"))
	require.ErrorIs(t, err, erp.ErrCurrencyMismatch)

	require.Empty(t, srv.CallsMatching(http.MethodPost, ""))
}

func TestCreateChecksSessionBeforeAmount(t *testing.T) {
	svc, srv := newTestService(t)
	client := svc.erp.(*erp.Client)
	require.NoError(t, client.Clear(context.Background()))

	_, err := svc.Create(context.Background(), input(0, "bank"))
	require.ErrorIs(t, err, erp.ErrNoSession)
	require.NotErrorIs(t, err, erp.ErrInvalidInput)
	require.Empty(t, srv.CallsMatching(http.MethodGet, erp.DoctypePurchaseInvoice))
}

func TestCreateAccountNotFound(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Fail(http.MethodGet, erp.DoctypeAccount, http.StatusNotFound)

	_, err := svc.Create(context.Background(), input(10, "bank"))
	require.ErrorIs(t, err, erp.ErrAccountNotFound)
	require.Empty(t, srv.CallsMatching(http.MethodPost, ""))
}

func TestCreateUpstreamCreateFailure(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Fail(http.MethodPost, erp.DoctypePaymentEntry, http.StatusExpectationFailed)

	_, err := svc.Create(context.Background(), input(10, "bank"))
	require.ErrorIs(t, err, erp.ErrCreate)
	require.NotErrorIs(t, err, erp.ErrSubmit)
}

func TestCreateSubmitFailureKeepsDraft(t *testing.T) {
	svc, srv := newTestService(t)
	srv.Fail(http.MethodPut, erp.DoctypePaymentEntry, http.StatusInternalServerError)

	_, err := svc.Create(context.Background(), input(10, "bank"))
	require.ErrorIs(t, err, erp.ErrSubmit)
	var submitErr *erp.SubmitError
	require.ErrorAs(t, err, &submitErr)
	require.Equal(t, erp.DoctypePaymentEntry, submitErr.Ref.Doctype)

	draft, ok := srv.Doc(erp.DoctypePaymentEntry, submitErr.Ref.Name)
	require.True(t, ok)
	require.Equal(t, erp.DocStatusDraft, erp.Document(draft).Int("docstatus"))

	srv.ClearFailures()
	submitted, err := svc.Resubmit(context.Background(), submitErr.Ref.Name)
	require.NoError(t, err)
	require.True(t, submitted)
	submitted, err = svc.Resubmit(context.Background(), submitErr.Ref.Name)
	require.NoError(t, err)
	require.False(t, submitted)
}

func TestResolveAccount(t *testing.T) {
	account, err := ResolveAccount("  Cash ")
	require.NoError(t, err)
	require.Equal(t, "1101 - Main Cash - AD - AD", account.Ledger)
	require.Equal(t, AccountCash, account.Key)

	_, err = ResolveAccount("")
	require.ErrorIs(t, err, erp.ErrInvalidAccount)
}
