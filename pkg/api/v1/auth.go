package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
)

type authResponse struct {
	User    *auth.User `json:"user"`
	Version string     `json:"version"`
}

// AuthRouter returns the caller's resolved identity. The surrounding
// auth middleware has already validated the token by the time this
// handler runs.
func AuthRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		user := auth.UserFromContext(req.Context())
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Detail:  "Invalid or missing token",
				Version: apiVersion,
			})
			return
		}
		writeJSON(w, http.StatusOK, authResponse{User: user, Version: apiVersion})
	})
	return r
}
