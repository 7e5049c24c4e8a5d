// Package api contains the REST API for the control plane.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/NimbleBrainInc/nimbletools-core/pkg/api/v1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/servers"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/workspaces"
)

const (
	requestTimeout    = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Deps carries the managers the API routes over.
type Deps struct {
	Workspaces *workspaces.Manager
	Servers    *servers.Manager
	Auth       auth.Provider
}

// Router assembles the full control-plane handler.
func Router(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	// The health endpoint stays reachable without a token. Request
	// deadlines are applied per route group; log queries get a longer
	// one, so the workspace router manages its own.
	r.With(middleware.Timeout(requestTimeout)).Mount("/health", v1.HealthRouter())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Auth))
		r.With(middleware.Timeout(requestTimeout)).Mount("/auth", v1.AuthRouter())
		r.Mount("/v1/workspaces", v1.WorkspaceRouter(deps.Workspaces, deps.Servers, deps.Auth))
	})

	return r
}

// Serve runs the API server until the context is cancelled, then drains
// in-flight requests. The caller sets up signal handling.
func Serve(ctx context.Context, address string, deps Deps) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           Router(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting API server on %s", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Infof("API server stopped")
	return nil
}
