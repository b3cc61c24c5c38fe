// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

// Sentinel errors for the HTTP layer.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("request already processed")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var submitErr *erp.SubmitError
	if errors.As(err, &submitErr) {
		pending := submitErr.Ref
		problem := ProblemDetail{
			Type:    "erp/submit-pending",
			Title:   "Submit Failed",
			Status:  http.StatusBadGateway,
			Detail:  submitErr.Error(),
			Pending: &pending,
		}
		// the session lapsed after the write; the caller logs in and resubmits
		if errors.Is(err, erp.ErrNoSession) {
			problem.Title = "Session Required"
			problem.Status = http.StatusUnauthorized
		}
		write(w, problem)
		return
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		ValidationProblem(w, fieldErrs)
		return
	}

	switch {
	case errors.Is(err, erp.ErrNoSession):
		Problem(w, http.StatusUnauthorized, "Session Required", err.Error())
	case errors.Is(err, erp.ErrAuth):
		Problem(w, http.StatusUnauthorized, "Unauthorized", erp.ErrAuth.Error())
	case errors.Is(err, erp.ErrOwnership):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, erp.ErrItemNotFound), errors.Is(err, erp.ErrAccountNotFound), errors.Is(err, erp.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, erp.ErrOverpayment), errors.Is(err, erp.ErrInvalidAccount), errors.Is(err, erp.ErrCurrencyMismatch):
		Problem(w, http.StatusUnprocessableEntity, "Rejected", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, erp.ErrInvalidInput):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, erp.ErrPersist), errors.Is(err, erp.ErrCreate), errors.Is(err, erp.ErrTransport), errors.Is(err, erp.ErrUnexpected):
		Problem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	default:
		var statusErr *erp.StatusError
		if errors.As(err, &statusErr) {
			Problem(w, http.StatusBadGateway, "Upstream Failure", statusErr.Error())
			return
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// ValidationProblem reports field-level validation failures.
func ValidationProblem(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	write(w, ProblemDetail{
		Title:  "Validation Failed",
		Status: http.StatusUnprocessableEntity,
		Errors: fields,
	})
}
