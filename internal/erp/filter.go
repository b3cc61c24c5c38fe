package erp

import (
	"encoding/json"
	"fmt"
)

// Filter operators understood by the resource API.
const (
	OpEq   = "="
	OpNeq  = "!="
	OpLike = "like"
	OpIn   = "in"
)

// Filter is one [field, operator, value] condition of a list query.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// MarshalJSON encodes the filter in the positional array form.
func (f Filter) MarshalJSON() ([]byte, error) {
	op := f.Op
	if op == "" {
		op = OpEq
	}
	return json.Marshal([]any{f.Field, op, f.Value})
}

func encodeFilters(filters []Filter) (string, error) {
	for _, f := range filters {
		if f.Field == "" {
			return "", fmt.Errorf("erp: filter field required")
		}
	}
	raw, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func encodeFields(fields []string) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
