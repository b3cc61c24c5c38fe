package procurement

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/erp/erptest"
)

func newTestService(t *testing.T) (*Service, *erptest.Server, *erp.Client) {
	t.Helper()
	srv := erptest.New(t)
	srv.AddUser("buyer", "pw")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := erp.NewClient(erp.Config{BaseURL: srv.URL}, erp.NewMemoryStore(), logger)
	_, err := client.Login(context.Background(), "buyer", "pw")
	require.NoError(t, err)

	srv.Put(erp.DoctypeSupplier, "SUP-1", map[string]any{"supplier_name": "Atlas Supplies"})
	srv.Put(erp.DoctypeSupplier, "SUP-2", map[string]any{"supplier_name": "Rif Trading"})
	srv.Put(erp.DoctypePurchaseOrder, "PO-1", map[string]any{"supplier": "SUP-1", "status": "To Bill", "grand_total": 80.0, "per_billed": 0.0})
	srv.Put(erp.DoctypePurchaseOrder, "PO-2", map[string]any{"supplier": "SUP-2", "status": "Completed", "grand_total": 12.0, "per_billed": 100.0})
	srv.Put(erp.DoctypePurchaseInvoice, "PINV-1", map[string]any{"supplier": "SUP-1", "status": "Unpaid", "grand_total": 100.0, "outstanding_amount": 100.0})
	srv.Put(erp.DoctypePurchaseInvoice, "PINV-2", map[string]any{"supplier": "SUP-2", "status": "Paid", "currency": "USD", "grand_total": 9.0, "outstanding_amount": 0.0})
	return NewService(client, logger), srv, client
}

func TestListings(t *testing.T) {
	svc, srv, _ := newTestService(t)
	ctx := context.Background()

	suppliers, err := svc.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 2)
	require.Equal(t, "Atlas Supplies", suppliers[0].SupplierName)

	orders, err := svc.ListPurchaseOrders(ctx, "SUP-2")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "PO-2", orders[0].Name)
	require.Equal(t, 100.0, orders[0].PerBilled)

	invoices, err := svc.ListInvoices(ctx, "")
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	require.Equal(t, DefaultCurrency, invoices[0].Currency)
	require.Equal(t, "USD", invoices[1].Currency)

	calls := srv.CallsMatching(http.MethodGet, erp.DoctypePurchaseInvoice)
	require.Empty(t, calls[0].Query.Get("filters"))
}

func TestListingsWithoutSession(t *testing.T) {
	svc, srv, client := newTestService(t)
	require.NoError(t, client.Clear(context.Background()))

	_, err := svc.ListSuppliers(context.Background())
	require.ErrorIs(t, err, erp.ErrNoSession)
	require.Empty(t, srv.Calls())
}

func TestGetInvoiceDetails(t *testing.T) {
	svc, _, _ := newTestService(t)

	doc, err := svc.GetInvoiceDetails(context.Background(), "PINV-1")
	require.NoError(t, err)
	require.Equal(t, "SUP-1", doc.String("supplier"))

	_, err = svc.GetInvoiceDetails(context.Background(), "PINV-404")
	require.ErrorIs(t, err, erp.ErrNotFound)
	_, err = svc.GetInvoiceDetails(context.Background(), " ")
	require.ErrorIs(t, err, erp.ErrNotFound)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	svc, srv, _ := newTestService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.UpdateInvoiceStatus(ctx, "PINV-1", "Paid", "SUP-2"), erp.ErrOwnership)
	require.Empty(t, srv.CallsMatching(http.MethodPut, ""))

	require.NoError(t, svc.UpdateInvoiceStatus(ctx, "PINV-1", "Overdue", "SUP-1"))
	doc, _ := srv.Doc(erp.DoctypePurchaseInvoice, "PINV-1")
	require.Equal(t, "Overdue", doc["status"])

	srv.Fail(http.MethodPut, erp.DoctypePurchaseInvoice, http.StatusForbidden)
	require.ErrorIs(t, svc.UpdateInvoiceStatus(ctx, "PINV-1", "Paid", ""), erp.ErrPersist)
}

func TestInvoiceRoutes(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/invoices", h.MountInvoiceRoutes)
	r.Route("/suppliers", h.MountSupplierRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/invoices/PINV-404", nil))
	require.Equal(t, http.StatusNotFound, res.Code)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/suppliers", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Rif Trading")

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/invoices/PINV-1/status", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/invoices/PINV-1/status", strings.NewReader(`{"status":"Paid","supplier":"SUP-1"}`)))
	require.Equal(t, http.StatusOK, res.Code)
}
