package erp

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// DocRef addresses one document of a doctype.
type DocRef struct {
	Doctype string `json:"doctype"`
	Name    string `json:"name"`
}

func (r DocRef) path() string {
	return resourcePath(r.Doctype) + "/" + url.PathEscape(r.Name)
}

// Document is a decoded ERP document or list row.
type Document map[string]any

// String returns the field as a string, empty when absent or not a string.
func (d Document) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Float returns the numeric field and whether it was present and numeric.
func (d Document) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns the field as an int, zero when absent.
func (d Document) Int(key string) int {
	f, _ := d.Float(key)
	return int(f)
}

// Children returns a child table as documents. Entries that are not
// objects are skipped.
func (d Document) Children(key string) []Document {
	raw, ok := d[key].([]any)
	if !ok {
		if docs, ok := d[key].([]Document); ok {
			return docs
		}
		return nil
	}
	out := make([]Document, 0, len(raw))
	for _, entry := range raw {
		switch m := entry.(type) {
		case map[string]any:
			out = append(out, Document(m))
		case Document:
			out = append(out, m)
		}
	}
	return out
}

func resourcePath(doctype string) string {
	return "/api/resource/" + url.PathEscape(doctype)
}
