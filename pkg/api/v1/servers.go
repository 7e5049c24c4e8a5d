package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logs"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/servers"
)

// maxDefinitionBytes bounds the size of a submitted server definition.
const maxDefinitionBytes = 1 << 20

type serverResponse struct {
	Server  *servers.Summary `json:"server"`
	Version string           `json:"version"`
}

type serverListResponse struct {
	Servers []servers.Summary `json:"servers"`
	Count   int               `json:"count"`
	Version string            `json:"version"`
}

type logsResponse struct {
	logs.Response
	Version string `json:"version"`
}

type restartResponse struct {
	Restarted bool   `json:"restarted"`
	Version   string `json:"version"`
}

func (s *WorkspaceRoutes) listServers(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	list, err := s.servers.List(r.Context(), chi.URLParam(r, "workspaceID"), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, serverListResponse{
		Servers: list,
		Count:   len(list),
		Version: apiVersion,
	})
}

func (s *WorkspaceRoutes) createServer(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	doc, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionBytes))
	if err != nil {
		writeError(w, r, errors.NewInvalidInputError("Failed to create server: could not read request body", err))
		return
	}

	summary, err := s.servers.Create(r.Context(), chi.URLParam(r, "workspaceID"), user, doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, serverResponse{Server: summary, Version: apiVersion})
}

func (s *WorkspaceRoutes) getServer(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	summary, err := s.servers.Get(r.Context(), chi.URLParam(r, "workspaceID"), user, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, serverResponse{Server: summary, Version: apiVersion})
}

func (s *WorkspaceRoutes) updateServer(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req servers.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.NewInvalidInputError(
			fmt.Sprintf("Failed to update server '%s': invalid request body", chi.URLParam(r, "name")), err))
		return
	}

	summary, err := s.servers.Update(r.Context(), chi.URLParam(r, "workspaceID"), user, chi.URLParam(r, "name"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, serverResponse{Server: summary, Version: apiVersion})
}

func (s *WorkspaceRoutes) deleteServer(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := s.servers.Delete(r.Context(), chi.URLParam(r, "workspaceID"), user, chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, Version: apiVersion})
}

func (s *WorkspaceRoutes) getServerLogs(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	query, err := parseLogQuery(r)
	if err != nil {
		writeError(w, r, errors.NewInvalidInputError(
			fmt.Sprintf("Failed to get logs for server '%s': %s", chi.URLParam(r, "name"), errors.Message(err)), err))
		return
	}

	resp, err := s.servers.Logs(r.Context(), chi.URLParam(r, "workspaceID"), user, chi.URLParam(r, "name"), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Response: *resp, Version: apiVersion})
}

func (s *WorkspaceRoutes) restartServer(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := s.servers.Restart(r.Context(), chi.URLParam(r, "workspaceID"), user, chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restartResponse{Restarted: true, Version: apiVersion})
}

// parseLogQuery extracts and validates the log query parameters. Range
// checks live in logs.Query.Validate; this only converts the strings.
func parseLogQuery(r *http.Request) (logs.Query, error) {
	var query logs.Query

	params := r.URL.Query()
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, errors.NewInvalidInputError(fmt.Sprintf("limit %q is not an integer", raw), err)
		}
		// An absent limit gets the default downstream; an explicit zero
		// is out of range, not a request for the default.
		if limit == 0 {
			return query, errors.NewInvalidInputError("limit must be at least 1", nil)
		}
		query.Limit = limit
	}
	if raw := params.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, errors.NewInvalidInputError(fmt.Sprintf("since %q is not an RFC 3339 timestamp", raw), err)
		}
		query.Since = &since
	}
	if raw := params.Get("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, errors.NewInvalidInputError(fmt.Sprintf("until %q is not an RFC 3339 timestamp", raw), err)
		}
		query.Until = &until
	}
	query.Level = params.Get("level")
	query.PodName = params.Get("pod_name")

	return query, nil
}
