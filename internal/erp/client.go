// Package erp talks to the ERPNext HTTP API on behalf of the gateway. It owns
// the shared upstream session and exposes generic resource operations.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	sidCookie = "sid"
	guestSID  = "Guest"

	maxErrorBody = 2048
)

// Observer receives one callback per upstream call.
type Observer interface {
	ObserveERPCall(op, outcome string, elapsed time.Duration)
}

// Config configures the upstream connection.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps interactions with the ERPNext API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore
	logger     *slog.Logger
	observer   Observer

	// loginMu serialises login and logout so clear-then-save is not interleaved.
	loginMu sync.Mutex
}

// NewClient constructs a new client.
func NewClient(cfg Config, store SessionStore, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		store:      store,
		logger:     logger,
	}
}

// SetObserver installs call instrumentation.
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

type loginResponse struct {
	Message  string `json:"message"`
	FullName string `json:"full_name"`
}

// Login authenticates against the ERP and stores the resulting session.
// Any previously held session is discarded first. Success requires a 2xx
// response and a non-guest sid cookie.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("usr", username)
	form.Set("pwd", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/method/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("login", "transport", start)
		return nil, fmt.Errorf("%w: login: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe("login", "rejected", start)
		body := readExcerpt(resp.Body)
		return nil, fmt.Errorf("%w: %w", ErrAuth, &StatusError{Method: http.MethodPost, Path: "/api/method/login", StatusCode: resp.StatusCode, Body: body})
	}

	var sid string
	for _, ck := range resp.Cookies() {
		if ck.Name == sidCookie {
			sid = ck.Value
		}
	}
	if sid == "" || sid == guestSID {
		c.observe("login", "rejected", start)
		return nil, fmt.Errorf("%w: no session credential issued", ErrAuth)
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		c.logger.Warn("erp login body not decodable", slog.Any("error", err))
	}

	sess := newSession(sid, payload.FullName)
	if err := c.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	c.observe("login", "ok", start)
	c.logger.Info("erp session established", slog.String("session", sess.ID.String()), slog.String("user", sess.User))
	return sess, nil
}

// Logout ends the upstream session on a best-effort basis and clears the store.
func (c *Client) Logout(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if sess, err := c.store.Load(ctx); err == nil && sess.Valid() {
		if err := c.do(ctx, "logout", sess, http.MethodPost, "/api/method/logout", nil, nil, "", nil); err != nil {
			c.logger.Warn("erp logout", slog.Any("error", err))
		}
	}
	return c.store.Clear(ctx)
}

// Clear drops the held session without contacting the ERP.
func (c *Client) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Session returns the held session or ErrNoSession. A store that cannot be
// read yields ErrUnexpected so callers are not sent back to the login form.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error("erp session load", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w: %w", ErrUnexpected, ErrSessionStore, err)
	}
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	return sess, nil
}

// IsValid reports whether an authenticated session is held.
func (c *Client) IsValid(ctx context.Context) bool {
	_, err := c.Session(ctx)
	return err == nil
}

// authed runs an authenticated request. It fails with ErrNoSession before
// any network traffic when no session is held.
func (c *Client) authed(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	sess, err := c.Session(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, op, sess, method, path, query, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op string, sess *Session, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnexpected, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sess != nil {
		req.AddCookie(&http.Cookie{Name: sidCookie, Value: sess.Token})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, "transport", start)
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(op, "status_"+statusClass(resp.StatusCode), start)
		statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
		c.logger.Debug("erp call failed", slog.String("op", op), slog.Int("status", resp.StatusCode))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrNotFound, statusErr)
		}
		return statusErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			c.observe(op, "decode", start)
			return fmt.Errorf("%w: decode %s: %v", ErrUnexpected, op, err)
		}
	}
	c.observe(op, "ok", start)
	return nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveERPCall(op, outcome, time.Since(start))
}

func jsonBody(v any) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode body: %v", ErrUnexpected, err)
	}
	return bytes.NewReader(raw), nil
}

func readExcerpt(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(raw))
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "other"
	}
}
