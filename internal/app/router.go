package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/erpnext-gateway/internal/auth"
	"github.com/odyssey-erp/erpnext-gateway/internal/dashboard"
	"github.com/odyssey-erp/erpnext-gateway/internal/observability"
	"github.com/odyssey-erp/erpnext-gateway/internal/payments"
	"github.com/odyssey-erp/erpnext-gateway/internal/platform/httpx"
	"github.com/odyssey-erp/erpnext-gateway/internal/procurement"
	"github.com/odyssey-erp/erpnext-gateway/internal/quotations"
	"github.com/odyssey-erp/erpnext-gateway/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	QuotationsHandler  *quotations.Handler
	ProcurementHandler *procurement.Handler
	PaymentsHandler    *payments.Handler
	DashboardHandler   *dashboard.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/quotations", params.QuotationsHandler.MountRoutes)
	r.Route("/suppliers", params.ProcurementHandler.MountSupplierRoutes)
	r.Route("/purchase-orders", params.ProcurementHandler.MountOrderRoutes)
	r.Route("/invoices", func(r chi.Router) {
		params.ProcurementHandler.MountInvoiceRoutes(r)
		params.PaymentsHandler.MountRoutes(r)
	})
	r.Route("/payment-entries", params.PaymentsHandler.MountEntryRoutes)
	if params.DashboardHandler != nil {
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}

// NewWorkerRouter serves the worker's liveness probe and metrics.
func NewWorkerRouter(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
