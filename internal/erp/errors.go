package erp

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession indicates no authenticated ERP session is held.
	ErrNoSession = errors.New("erp: no valid session, please log in")
	// ErrAuth indicates the ERP rejected the supplied credentials.
	ErrAuth = errors.New("erp: invalid username or password")
	// ErrNotFound indicates the addressed document does not exist.
	ErrNotFound = errors.New("erp: document not found")
	// ErrOwnership indicates the document belongs to another supplier.
	ErrOwnership = errors.New("erp: document does not belong to supplier")
	// ErrItemNotFound indicates the line item is absent from the document.
	ErrItemNotFound = errors.New("erp: item not found in document")
	// ErrOverpayment indicates a payment larger than the outstanding amount.
	ErrOverpayment = errors.New("erp: payment exceeds outstanding amount")
	// ErrInvalidAccount indicates an unknown logical payment account.
	ErrInvalidAccount = errors.New("erp: invalid payment account")
	// ErrAccountNotFound indicates the resolved ledger account is missing upstream.
	ErrAccountNotFound = errors.New("erp: ledger account not found")
	// ErrCurrencyMismatch indicates account and invoice currencies differ.
	ErrCurrencyMismatch = errors.New("erp: currency mismatch")
	// ErrPersist indicates an update of an existing document failed.
	ErrPersist = errors.New("erp: failed to persist document")
	// ErrCreate indicates creation of a new document failed.
	ErrCreate = errors.New("erp: failed to create document")
	// ErrSubmit indicates the submit transition failed.
	ErrSubmit = errors.New("erp: failed to submit document")
	// ErrTransport indicates the ERP could not be reached.
	ErrTransport = errors.New("erp: transport failure")
	// ErrInvalidInput indicates caller-supplied values a workflow cannot accept.
	ErrInvalidInput = errors.New("erp: invalid input")
	// ErrUnexpected covers malformed or uncategorised upstream responses.
	ErrUnexpected = errors.New("erp: unexpected response")
	// ErrSessionStore indicates the session could not be read from its store.
	// It always travels together with ErrUnexpected.
	ErrSessionStore = errors.New("erp: session store unavailable")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("erp: %s %s returned HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("erp: %s %s returned HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// OverpaymentError carries both amounts of a rejected payment.
type OverpaymentError struct {
	Amount      string
	Outstanding string
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", e.Amount, e.Outstanding)
}

// Is reports ErrOverpayment equivalence.
func (e *OverpaymentError) Is(target error) bool {
	return target == ErrOverpayment
}

// SubmitError indicates the document was written but the submit transition
// failed. Ref names the persisted draft so callers can resubmit it.
type SubmitError struct {
	Ref DocRef
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s %s saved but not submitted: %v", e.Ref.Doctype, e.Ref.Name, e.Err)
}

// Is reports ErrSubmit equivalence.
func (e *SubmitError) Is(target error) bool {
	return target == ErrSubmit
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// FetchError classifies a failed read of ref. Missing sessions, session store
// and transport failures keep their kind; any other failure means the document could not
// be obtained and is reported as ErrNotFound.
func FetchError(ref DocRef, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrSessionStore), errors.Is(err, ErrTransport), errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %s %s: %w", ErrNotFound, ref.Doctype, ref.Name, err)
	}
}
