// Package v1 implements the control-plane REST handlers. Handlers stay
// thin: decode and validate the request, call the manager, translate
// the error kind into an HTTP status.
package v1

import (
	"encoding/json"
	"net/http"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
)

// apiVersion is stamped on every response body.
const apiVersion = "v1"

// errorResponse is the error body returned to clients. Code carries a
// machine-readable code when one exists (e.g. ARCHITECTURE_MISMATCH).
type errorResponse struct {
	Detail  string `json:"detail"`
	Code    string `json:"code,omitempty"`
	Version string `json:"version"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("Failed to encode response body: %v", err)
	}
}

// writeError converts a manager error into the client-facing response.
// Internal details are logged, not leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	detail := errors.Message(err)
	if status == http.StatusInternalServerError {
		logger.Errorw("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		detail = "internal server error"
	}
	writeJSON(w, status, errorResponse{
		Detail:  detail,
		Code:    errors.Code(err),
		Version: apiVersion,
	})
}
