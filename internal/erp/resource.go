package erp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SubmitMode selects how the submit transition is requested.
type SubmitMode int

const (
	// SubmitRunMethod posts run_method=submit as a form.
	SubmitRunMethod SubmitMode = iota
	// SubmitDocStatus updates the docstatus field to 1.
	SubmitDocStatus
)

// ListOptions narrows a list query.
type ListOptions struct {
	Fields  []string
	Filters []Filter
	// Limit caps rows; zero asks the ERP for all rows.
	Limit int
}

type listEnvelope struct {
	Data []map[string]any `json:"data"`
}

type docEnvelope struct {
	Data map[string]any `json:"data"`
}

// List returns rows of a doctype matching the options.
func (c *Client) List(ctx context.Context, doctype string, opts ListOptions) ([]Document, error) {
	query := url.Values{}
	if len(opts.Fields) > 0 {
		fields, err := encodeFields(opts.Fields)
		if err != nil {
			return nil, err
		}
		query.Set("fields", fields)
	}
	if len(opts.Filters) > 0 {
		filters, err := encodeFilters(opts.Filters)
		if err != nil {
			return nil, err
		}
		query.Set("filters", filters)
	}
	query.Set("limit_page_length", strconv.Itoa(opts.Limit))

	var env listEnvelope
	if err := c.authed(ctx, "list:"+opName(doctype), http.MethodGet, resourcePath(doctype), query, nil, "", &env); err != nil {
		return nil, err
	}
	rows := make([]Document, 0, len(env.Data))
	for _, row := range env.Data {
		rows = append(rows, Document(row))
	}
	return rows, nil
}

// Get fetches one document. A missing document or an empty data envelope
// yields ErrNotFound.
func (c *Client) Get(ctx context.Context, ref DocRef) (Document, error) {
	if _, err := c.Session(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref.Name) == "" {
		return nil, fmt.Errorf("%w: %s name required", ErrNotFound, ref.Doctype)
	}
	var env docEnvelope
	if err := c.authed(ctx, "get:"+opName(ref.Doctype), http.MethodGet, ref.path(), nil, nil, "", &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, ref.Doctype, ref.Name)
	}
	return Document(env.Data), nil
}

// Update writes the full document back.
func (c *Client) Update(ctx context.Context, ref DocRef, doc Document) error {
	body, err := jsonBody(doc)
	if err != nil {
		return err
	}
	return c.authed(ctx, "update:"+opName(ref.Doctype), http.MethodPut, ref.path(), nil, body, "application/json", nil)
}

// Create inserts a new draft document and returns its name.
func (c *Client) Create(ctx context.Context, doctype string, doc Document) (string, error) {
	body, err := jsonBody(doc)
	if err != nil {
		return "", err
	}
	var env docEnvelope
	if err := c.authed(ctx, "create:"+opName(doctype), http.MethodPost, resourcePath(doctype), nil, body, "application/json", &env); err != nil {
		return "", err
	}
	name, _ := env.Data["name"].(string)
	if name == "" {
		return "", fmt.Errorf("%w: %s created without a name", ErrUnexpected, doctype)
	}
	return name, nil
}

// Submit requests the submit transition of an existing document.
func (c *Client) Submit(ctx context.Context, ref DocRef, mode SubmitMode) error {
	op := "submit:" + opName(ref.Doctype)
	switch mode {
	case SubmitDocStatus:
		body, err := jsonBody(Document{"docstatus": 1})
		if err != nil {
			return err
		}
		return c.authed(ctx, op, http.MethodPut, ref.path(), nil, body, "application/json", nil)
	default:
		form := url.Values{}
		form.Set("run_method", "submit")
		return c.authed(ctx, op, http.MethodPost, ref.path(), nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil)
	}
}

func opName(doctype string) string {
	return strings.ToLower(strings.ReplaceAll(doctype, " ", "_"))
}

// EnsureSubmitted submits ref unless it already is. It reports whether a
// submit call was issued. A cancelled document cannot be submitted again.
func (c *Client) EnsureSubmitted(ctx context.Context, ref DocRef, mode SubmitMode) (bool, error) {
	doc, err := c.Get(ctx, ref)
	if err != nil {
		return false, FetchError(ref, err)
	}
	switch doc.Int("docstatus") {
	case DocStatusSubmitted:
		return false, nil
	case DocStatusCancelled:
		return false, fmt.Errorf("%w: %s %s is cancelled", ErrSubmit, ref.Doctype, ref.Name)
	}
	if err := c.Submit(ctx, ref, mode); err != nil {
		return true, &SubmitError{Ref: ref, Err: err}
	}
	return true, nil
}
