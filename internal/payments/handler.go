package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/platform/httpx"
	"github.com/odyssey-erp/erpnext-gateway/internal/shared"
)

// IdempotencyHeader carries the client-chosen request key.
const IdempotencyHeader = "Idempotency-Key"

const idempotencyModule = "payments"

// IdempotencyPort guards against replayed payment requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler exposes payment endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyPort
	validator   *validator.Validate
}

// NewHandler builds Handler instance. idem may be nil.
func NewHandler(logger *slog.Logger, service *Service, idem IdempotencyPort) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idem, validator: validator.New()}
}

// MountRoutes registers payment routes under the invoice router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{name}/payments", h.handleCreate)
}

// MountEntryRoutes registers payment entry routes.
func (h *Handler) MountEntryRoutes(r chi.Router) {
	r.Post("/{name}/submit", h.handleResubmit)
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PostingDate string          `json:"posting_date" validate:"required,datetime=2006-01-02"`
	ReferenceNo string          `json:"reference_no" validate:"max=140"`
	Account     string          `json:"account" validate:"required"`
	Supplier    string          `json:"supplier"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, key))
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	invoice := chi.URLParam(r, "name")
	result, err := h.service.Create(r.Context(), CreateInput{
		Invoice:     invoice,
		Supplier:    req.Supplier,
		Amount:      req.Amount,
		PostingDate: req.PostingDate,
		ReferenceNo: req.ReferenceNo,
		AccountKey:  req.Account,
	})
	if err != nil {
		if key != "" && h.idempotency != nil && !mayHaveCreated(err) {
			if delErr := h.idempotency.Delete(r.Context(), key, idempotencyModule); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// mayHaveCreated reports whether the payment entry can exist upstream after
// err. Such failures keep the idempotency key taken.
func mayHaveCreated(err error) bool {
	if errors.Is(err, erp.ErrSubmit) {
		return true
	}
	// the request may have landed before the connection failed
	return errors.Is(err, erp.ErrCreate) && errors.Is(err, erp.ErrTransport)
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	submitted, err := h.service.Resubmit(r.Context(), name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payment_entry":     name,
		"submitted":         true,
		"already_submitted": !submitted,
	})
}
