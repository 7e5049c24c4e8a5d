package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
)

// Middleware returns an HTTP middleware that validates the bearer token
// with the provider and attaches the resulting User to the request
// context. Requests without a valid user are rejected with 401; the
// permissive provider makes that decision a no-op in development.
func Middleware(provider Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			user, err := provider.ValidateToken(r.Context(), token)
			if err != nil {
				if errors.IsUnauthenticated(err) {
					writeJSONError(w, http.StatusUnauthorized, "Invalid or missing token")
					return
				}
				logger.Errorf("Auth provider failed to validate token: %v", err)
				writeJSONError(w, http.StatusServiceUnavailable, "Authentication unavailable")
				return
			}
			if user == nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// writeJSONError emits the same {detail} body shape the API handlers
// use, so clients see one error format whether the middleware or a
// handler rejected them.
func writeJSONError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		logger.Errorf("Failed to write error response: %v", err)
	}
}

// bearerToken extracts the token from the Authorization header. An
// empty string is returned when the header is absent or not a bearer
// scheme; the provider decides whether that is acceptable.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
