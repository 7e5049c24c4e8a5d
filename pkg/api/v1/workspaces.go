package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/servers"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/workspaces"
)

// WorkspaceRoutes defines the routes for workspace and server
// management.
type WorkspaceRoutes struct {
	workspaces *workspaces.Manager
	servers    *servers.Manager
	provider   auth.Provider
}

// Request deadlines. Log queries fan out to every pod of a server and
// get a longer budget than the rest of the API.
const (
	requestTimeout  = 30 * time.Second
	logQueryTimeout = 60 * time.Second
)

// WorkspaceRouter creates a new WorkspaceRoutes instance.
func WorkspaceRouter(ws *workspaces.Manager, srv *servers.Manager, provider auth.Provider) http.Handler {
	routes := WorkspaceRoutes{workspaces: ws, servers: srv, provider: provider}
	standard := middleware.Timeout(requestTimeout)

	r := chi.NewRouter()
	r.With(standard).Get("/", routes.listWorkspaces)
	r.With(standard).Post("/", routes.createWorkspace)

	r.Route("/{workspaceID}", func(r chi.Router) {
		r.Use(routes.requireWorkspaceAccess)
		r.With(standard).Get("/", routes.getWorkspace)
		r.With(standard).Delete("/", routes.deleteWorkspace)

		r.Route("/servers", func(r chi.Router) {
			r.With(standard).Get("/", routes.listServers)
			r.With(standard).Post("/", routes.createServer)
			r.With(standard).Get("/{name}", routes.getServer)
			r.With(standard).Patch("/{name}", routes.updateServer)
			r.With(standard).Delete("/{name}", routes.deleteServer)
			r.With(middleware.Timeout(logQueryTimeout)).Get("/{name}/logs", routes.getServerLogs)
			r.With(standard).Post("/{name}/restart", routes.restartServer)
		})
	})

	return r
}

// requireWorkspaceAccess asks the auth provider whether the caller may
// touch this workspace at all. Organization scoping still applies in
// the managers underneath.
func (s *WorkspaceRoutes) requireWorkspaceAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFromContext(r.Context())
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Detail:  "Invalid or missing token",
				Version: apiVersion,
			})
			return
		}

		workspaceID := chi.URLParam(r, "workspaceID")
		allowed, err := s.provider.CheckWorkspaceAccess(r.Context(), user, workspaceID)
		if err != nil {
			logger.Errorf("Workspace access check failed for %s: %v", workspaceID, err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Detail:  "Authorization unavailable",
				Version: apiVersion,
			})
			return
		}
		if !allowed {
			writeJSON(w, http.StatusForbidden, errorResponse{
				Detail:  "Access to workspace denied",
				Version: apiVersion,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type workspaceResponse struct {
	Workspace *workspaces.Workspace `json:"workspace"`
	Version   string                `json:"version"`
}

type workspaceListResponse struct {
	Workspaces []workspaces.Workspace `json:"workspaces"`
	Count      int                    `json:"count"`
	Version    string                 `json:"version"`
}

func (s *WorkspaceRoutes) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	list, err := s.workspaces.List(r.Context(), user.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceListResponse{
		Workspaces: list,
		Count:      len(list),
		Version:    apiVersion,
	})
}

func (s *WorkspaceRoutes) createWorkspace(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.NewInvalidInputError("Failed to create workspace: invalid request body", err))
		return
	}

	ws, err := s.workspaces.Create(r.Context(), req.Name, req.Description, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, workspaceResponse{Workspace: ws, Version: apiVersion})
}

func (s *WorkspaceRoutes) getWorkspace(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	ws, err := s.workspaces.Get(r.Context(), chi.URLParam(r, "workspaceID"), user.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceResponse{Workspace: ws, Version: apiVersion})
}

type deleteResponse struct {
	Deleted bool   `json:"deleted"`
	Version string `json:"version"`
}

func (s *WorkspaceRoutes) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := s.workspaces.Delete(r.Context(), chi.URLParam(r, "workspaceID"), user.OrganizationID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, Version: apiVersion})
}
