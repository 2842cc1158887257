package payments

import (
	"errors"
	"strings"
)

// Sentinel conflict/state errors. These are rejections surfaced to the
// caller with an explanation, never crashes.
var (
	ErrRenewalTooEarly = errors.New("subscription does not expire within one month")
	ErrCheckoutOngoing = errors.New("a checkout is already in progress for this account")
	ErrAlreadyCredited = errors.New("payment has already been credited")
	ErrNotCreditable   = errors.New("credit payments cannot be credited")
	ErrPaymentLocked   = errors.New("paid or invoiced payments cannot be deleted")
)

// FieldError pairs a form field with a machine-readable error kind.
type FieldError struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

// Error kinds used by the named validators.
const (
	KindOutOfRange = "out_of_range"
	KindInvalid    = "invalid"
	KindRequired   = "required"
)

// ValidationError carries every failed field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Kind)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// FieldMap returns the field → kind mapping for structured responses.
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Kind
	}
	return m
}
