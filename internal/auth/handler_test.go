package auth_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erpnext-gateway/internal/auth"
	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
	"github.com/odyssey-erp/erpnext-gateway/internal/erp/erptest"
	_ "github.com/odyssey-erp/erpnext-gateway/testing"
)

func newAuthRouter(t *testing.T) (http.Handler, *erptest.Server) {
	t.Helper()
	srv := erptest.New(t)
	srv.AddUser("buyer@example.com", "correctpass")

	mr := miniredis.RunT(t)
	store := erp.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := erp.NewClient(erp.Config{BaseURL: srv.URL}, store, logger)

	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(logger, auth.NewService(client)).MountRoutes)
	return r, srv
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestLoginAndSession(t *testing.T) {
	h, _ := newAuthRouter(t)

	res := do(h, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = do(h, http.MethodPost, "/auth/login", `{"username":"buyer@example.com","password":"correctpass"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotContains(t, res.Body.String(), "sid-")

	var info auth.Info
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &info))
	require.Equal(t, "buyer@example.com", info.User)

	res = do(h, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusOK, res.Code)

	res = do(h, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusNoContent, res.Code)
	res = do(h, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h, _ := newAuthRouter(t)

	res := do(h, http.MethodPost, "/auth/login", `{"username":"buyer@example.com","password":"correctpass"}`)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(h, http.MethodPost, "/auth/login", `{"username":"buyer@example.com","password":"wrongpass"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	// the earlier session is gone after a failed attempt
	res = do(h, http.MethodGet, "/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	h, _ := newAuthRouter(t)

	res := do(h, http.MethodPost, "/auth/login", `{"username":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Contains(t, res.Body.String(), "Password")

	res = do(h, http.MethodPost, "/auth/login", `not json`)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
}
