package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
)

// tokenCheckingProvider only accepts one token; everything else is
// unauthenticated.
type tokenCheckingProvider struct {
	accepted string
}

func (*tokenCheckingProvider) Initialize(context.Context) error { return nil }
func (*tokenCheckingProvider) Shutdown(context.Context) error   { return nil }

func (p *tokenCheckingProvider) ValidateToken(_ context.Context, token string) (*User, error) {
	if token != p.accepted {
		return nil, errors.NewUnauthenticatedError("invalid token", nil)
	}
	return &User{UserID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", OrganizationID: "f47ac10b-58cc-4372-a567-0e02b2c3d479"}, nil
}

func (*tokenCheckingProvider) CheckWorkspaceAccess(context.Context, *User, string) (bool, error) {
	return true, nil
}

func (*tokenCheckingProvider) CheckPermission(context.Context, *User, string, string) (bool, error) {
	return true, nil
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	provider := &tokenCheckingProvider{accepted: "good-token"}
	var gotUser *User
	handler := Middleware(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotUser)
		assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", gotUser.UserID)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Invalid or missing token", body["detail"])
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("provider outage", func(t *testing.T) {
		outage := Middleware(&failingProvider{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		outage.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Authentication unavailable", body["detail"])
	})
}

// failingProvider simulates an auth backend outage.
type failingProvider struct{}

func (*failingProvider) Initialize(context.Context) error { return nil }
func (*failingProvider) Shutdown(context.Context) error   { return nil }

func (*failingProvider) ValidateToken(context.Context, string) (*User, error) {
	return nil, errors.NewTransientError("auth backend unreachable", nil)
}

func (*failingProvider) CheckWorkspaceAccess(context.Context, *User, string) (bool, error) {
	return false, errors.NewTransientError("auth backend unreachable", nil)
}

func (*failingProvider) CheckPermission(context.Context, *User, string, string) (bool, error) {
	return false, errors.NewTransientError("auth backend unreachable", nil)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer scheme", "Bearer abc123", "abc123"},
		{"case insensitive scheme", "bearer abc123", "abc123"},
		{"no header", "", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, bearerToken(req))
		})
	}
}
