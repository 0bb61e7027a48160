// Package errs defines the closed set of error variants raised by the store
// and the service layer.
//
// Every failure that reaches the HTTP error normalizer is either one of the
// types below or an unclassified error. The normalizer switches on the type
// (via errors.As) instead of sniffing error names or driver codes, so the
// store is the only place that knows about driver-specific error shapes.
//
// Constructors attach a stack trace (github.com/pkg/errors) at the point the
// variant is raised. The trace is exposed to clients only outside production.
package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// NotFoundError reports that an identifier or route has no matching resource.
type NotFoundError struct {
	// Message is shown to clients as-is (e.g. "Car part not found").
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// MalformedIDError reports an identifier that fails the store's reference
// format check. Field is the attribute the value was meant for ("_id",
// "carModel", ...).
type MalformedIDError struct {
	Field string
	Value string
}

func (e *MalformedIDError) Error() string {
	return fmt.Sprintf("Cast to ObjectId failed for value %q at path %q", e.Value, e.Field)
}

// FieldError is a single field-level validation failure.
//
// Example:
//
//	{ "field": "name", "message": "name is required" }
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports that one or more fields were rejected by the
// store's schema. Fields keeps the order in which the checks failed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Messages returns the per-field messages in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}

// DuplicateKeyError reports a uniqueness violation. Field is empty when the
// conflicting attribute could not be determined from the driver error.
type DuplicateKeyError struct {
	Field string
	cause error
}

func (e *DuplicateKeyError) Error() string {
	if e.cause != nil {
		return "duplicate key: " + e.cause.Error()
	}
	return "duplicate key"
}

// Unwrap exposes the driver error.
func (e *DuplicateKeyError) Unwrap() error { return e.cause }

// NotificationError reports a failed or dropped email notification. It is
// always contained by the caller and never surfaced to HTTP clients.
type NotificationError struct {
	Kind       string
	Recipients int
	cause      error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %q to %d recipient(s) failed: %v", e.Kind, e.Recipients, e.cause)
}

// Unwrap exposes the underlying send/enqueue error.
func (e *NotificationError) Unwrap() error { return e.cause }

// NotFound returns a NotFoundError carrying a stack trace.
func NotFound(msg string) error {
	return errors.WithStack(&NotFoundError{Message: msg})
}

// MalformedID returns a MalformedIDError carrying a stack trace.
func MalformedID(field, value string) error {
	return errors.WithStack(&MalformedIDError{Field: field, Value: value})
}

// Validation returns a ValidationError carrying a stack trace. It returns nil
// when no field errors are given, so callers can collect and return in one go.
func Validation(fields ...FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return errors.WithStack(&ValidationError{Fields: fields})
}

// DuplicateKey returns a DuplicateKeyError carrying a stack trace.
func DuplicateKey(field string, cause error) error {
	return errors.WithStack(&DuplicateKeyError{Field: field, cause: cause})
}

// Notification wraps a send or enqueue failure.
func Notification(kind string, recipients int, cause error) error {
	return errors.WithStack(&NotificationError{Kind: kind, Recipients: recipients, cause: cause})
}

// Stack renders err with its recorded stack trace, or just its message when
// no trace was captured.
func Stack(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}
