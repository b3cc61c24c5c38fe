package procurement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/erpnext-gateway/internal/platform/httpx"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountSupplierRoutes registers supplier routes.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Get("/", h.handleListSuppliers)
}

// MountOrderRoutes registers purchase order routes.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.Get("/", h.handleListOrders)
}

// MountInvoiceRoutes registers purchase invoice routes.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Get("/", h.handleListInvoices)
	r.Get("/{name}", h.handleInvoiceDetails)
	r.Post("/{name}/status", h.handleUpdateStatus)
}

type statusRequest struct {
	Status   string `json:"status" validate:"required,max=140"`
	Supplier string `json:"supplier"`
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.logger.Warn("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPurchaseOrders(r.Context(), r.URL.Query().Get("supplier"))
	if err != nil {
		h.logger.Warn("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListInvoices(r.Context(), r.URL.Query().Get("supplier"))
	if err != nil {
		h.logger.Warn("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) handleInvoiceDetails(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetInvoiceDetails(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.service.UpdateInvoiceStatus(r.Context(), name, req.Status, req.Supplier); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice": name, "status": req.Status})
}
