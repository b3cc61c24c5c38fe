package quotations

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/erpnext-gateway/internal/platform/httpx"
)

// Handler exposes quotation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers quotation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/{name}/price", h.handleUpdatePrice)
	r.Post("/{name}/submit", h.handleResubmit)
}

type priceRequest struct {
	ItemCode string   `json:"item_code" validate:"required"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	Supplier string   `json:"supplier"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("supplier"))
	if err != nil {
		h.logger.Warn("list quotations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	err := h.service.UpdatePriceAndSubmit(r.Context(), UpdatePriceInput{
		Quotation: name,
		ItemCode:  req.ItemCode,
		Price:     *req.Price,
		Supplier:  req.Supplier,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotation": name,
		"item_code": req.ItemCode,
		"rate":      *req.Price,
		"submitted": true,
	})
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	submitted, err := h.service.Resubmit(r.Context(), name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotation":         name,
		"submitted":         true,
		"already_submitted": !submitted,
	})
}
