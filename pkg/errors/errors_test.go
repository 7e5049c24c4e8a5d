package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("workspace 'demo' not found", nil)
	assert.Equal(t, "not_found: workspace 'demo' not found", err.Error())

	wrapped := NewTransientError("cluster API unavailable", fmt.Errorf("dial timeout"))
	assert.Equal(t, "transient: cluster API unavailable: dial timeout", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "dial timeout")
}

func TestKindPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsInvalidInput(NewInvalidInputError("bad uuid", nil)))
	assert.True(t, IsConflict(NewConflictError("already exists", nil)))
	assert.False(t, IsConflict(NewNotFoundError("missing", nil)))

	// Predicates unwrap through fmt.Errorf chains.
	wrapped := fmt.Errorf("creating server: %w", NewForbiddenError("denied", nil))
	assert.True(t, IsForbidden(wrapped))
	assert.False(t, IsForbidden(fmt.Errorf("plain error")))
}

func TestWithCode(t *testing.T) {
	t.Parallel()

	err := NewInvalidInputError("no package matches cluster architecture", nil).
		WithCode("ARCHITECTURE_MISMATCH")
	assert.Equal(t, "ARCHITECTURE_MISMATCH", Code(err))
	assert.Equal(t, "", Code(fmt.Errorf("plain error")))
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{NewInvalidInputError("bad", nil), http.StatusUnprocessableEntity},
		{NewUnauthenticatedError("no token", nil), http.StatusUnauthorized},
		{NewForbiddenError("denied", nil), http.StatusForbidden},
		{NewNotFoundError("missing", nil), http.StatusNotFound},
		{NewConflictError("exists", nil), http.StatusConflict},
		{NewTransientError("5xx", nil), http.StatusServiceUnavailable},
		{NewInvariantViolationError("labels", nil), http.StatusInternalServerError},
		{NewInternalError("boom", nil), http.StatusInternalServerError},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "status for %v", tc.err)
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	wrapped := NewConflictError("Failed to update server 'echo': modified concurrently", fmt.Errorf("the object has been modified"))
	assert.Equal(t, "Failed to update server 'echo': modified concurrently", Message(wrapped))

	nested := fmt.Errorf("handler: %w", wrapped)
	assert.Equal(t, "Failed to update server 'echo': modified concurrently", Message(nested))

	assert.Equal(t, "plain error", Message(fmt.Errorf("plain error")))
}
