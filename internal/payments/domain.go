package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

// DefaultCurrency applies when the ERP omits an invoice or account currency.
const DefaultCurrency = "MAD"

// Logical payment account keys.
const (
	AccountBank = "bank"
	AccountCash = "cash"
)

var ledgers = map[string]string{
	AccountBank: "Bank Account - AD",
	AccountCash: "1101 - Main Cash - AD - AD",
}

// Account is a logical payment account resolved to its ledger.
type Account struct {
	Key      string `json:"key"`
	Ledger   string `json:"ledger"`
	Currency string `json:"currency"`
}

// ResolveAccount maps a logical account key to its ledger account. Keys are
// matched case-insensitively.
func ResolveAccount(key string) (Account, error) {
	folded := cases.Fold().String(strings.TrimSpace(key))
	ledger, ok := ledgers[folded]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", erp.ErrInvalidAccount, key)
	}
	return Account{Key: folded, Ledger: ledger}, nil
}

// CreateInput describes a payment against a purchase invoice.
type CreateInput struct {
	Invoice string
	// Supplier, when set, must own the invoice.
	Supplier    string
	Amount      decimal.Decimal
	PostingDate string
	ReferenceNo string
	AccountKey  string
}

// Result reports a submitted payment.
type Result struct {
	PaymentEntry string          `json:"payment_entry"`
	Invoice      string          `json:"invoice"`
	Paid         decimal.Decimal `json:"paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	Currency     string          `json:"currency"`
	FullyPaid    bool            `json:"fully_paid"`
	Message      string          `json:"message"`
}

// Entry is the Payment Entry draft sent to the ERP.
type Entry struct {
	Party       string
	Amount      decimal.Decimal
	Remaining   decimal.Decimal
	ModeOfPay   string
	PostingDate string
	Account     Account
	ReferenceNo string
	Invoice     string
}

// Document renders the entry in the ERP's field names.
func (e Entry) Document() erp.Document {
	amount := e.Amount.InexactFloat64()
	doc := erp.Document{
		"doctype":                    erp.DoctypePaymentEntry,
		"payment_type":               "Pay",
		"party_type":                 "Supplier",
		"party":                      e.Party,
		"paid_amount":                amount,
		"received_amount":            amount,
		"mode_of_payment":            e.ModeOfPay,
		"posting_date":               e.PostingDate,
		"source_exchange_rate":       1.0,
		"paid_from":                  e.Account.Ledger,
		"paid_from_account_currency": e.Account.Currency,
		"currency":                   e.Account.Currency,
		"references": []erp.Document{{
			"reference_doctype":  erp.DoctypePurchaseInvoice,
			"reference_name":     e.Invoice,
			"allocated_amount":   amount,
			"outstanding_amount": e.Remaining.InexactFloat64(),
		}},
	}
	if e.ReferenceNo != "" {
		doc["reference_no"] = e.ReferenceNo
	}
	return doc
}

func resultMessage(remaining decimal.Decimal, currency string) string {
	if remaining.IsPositive() {
		return fmt.Sprintf("Payment submitted. Remaining balance to pay: %s %s", remaining.StringFixed(2), currency)
	}
	return "Payment submitted. Invoice fully paid."
}
