// Package errors defines the error taxonomy shared by the operator and
// the control-plane API. Handler code consumes these errors by kind and
// maps them to HTTP statuses; the operator uses them to decide between
// requeue and terminal status updates.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error kinds
const (
	// ErrInvalidInput is returned on schema violations, bad UUIDs, and
	// missing required fields
	ErrInvalidInput = "invalid_input"

	// ErrUnauthenticated is returned when a token cannot be validated
	ErrUnauthenticated = "unauthenticated"

	// ErrForbidden is returned when the auth provider denies access
	ErrForbidden = "forbidden"

	// ErrNotFound is returned when a workspace or server does not exist
	ErrNotFound = "not_found"

	// ErrConflict is returned when a resource already exists or was
	// concurrently modified
	ErrConflict = "conflict"

	// ErrInvariantViolation is returned when an observed object is
	// missing required tenancy labels
	ErrInvariantViolation = "invariant_violation"

	// ErrTransient is returned on cluster-API 5xx and network timeouts
	ErrTransient = "transient"

	// ErrInternal is returned for unexpected failures
	ErrInternal = "internal"
)

// Error represents an error in the platform
type Error struct {
	// Kind is the error kind
	Kind string

	// Message is the error message
	Message string

	// Code is an optional machine-readable code surfaced to API clients
	// (e.g. ARCHITECTURE_MISMATCH)
	Code string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// WithCode attaches a machine-readable code to the error and returns it.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string, cause error) *Error {
	return NewError(ErrInvalidInput, message, cause)
}

// NewUnauthenticatedError creates a new unauthenticated error
func NewUnauthenticatedError(message string, cause error) *Error {
	return NewError(ErrUnauthenticated, message, cause)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, cause error) *Error {
	return NewError(ErrForbidden, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, cause error) *Error {
	return NewError(ErrConflict, message, cause)
}

// NewInvariantViolationError creates a new invariant violation error
func NewInvariantViolationError(message string, cause error) *Error {
	return NewError(ErrInvariantViolation, message, cause)
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *Error {
	return NewError(ErrTransient, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

func isKind(err error, kind string) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return isKind(err, ErrInvalidInput)
}

// IsUnauthenticated checks if the error is an unauthenticated error
func IsUnauthenticated(err error) bool {
	return isKind(err, ErrUnauthenticated)
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	return isKind(err, ErrForbidden)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isKind(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return isKind(err, ErrConflict)
}

// IsInvariantViolation checks if the error is an invariant violation error
func IsInvariantViolation(err error) bool {
	return isKind(err, ErrInvariantViolation)
}

// IsTransient checks if the error is a transient error
func IsTransient(err error) bool {
	return isKind(err, ErrTransient)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return isKind(err, ErrInternal)
}

// Message returns the user-facing message of the error, without the
// kind prefix or the wrapped cause. Causes carry internal detail that
// belongs in logs, not API responses. Errors outside the taxonomy fall
// back to their full text.
func Message(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Code returns the machine-readable code attached to the error, if any.
func Code(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error to the HTTP status code it surfaces as.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !stderrors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case ErrInvalidInput:
		return http.StatusUnprocessableEntity
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrTransient:
		return http.StatusServiceUnavailable
	case ErrInvariantViolation, ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
