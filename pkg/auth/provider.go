// Package auth provides the pluggable authentication seam for the
// control plane. A provider validates opaque bearer tokens and answers
// workspace and permission checks; the default permissive provider is
// meant for local and development clusters only.
package auth

import (
	"context"
)

// User is the authenticated context attached to a request after token
// validation.
type User struct {
	// UserID is the authenticated subject's UUID.
	UserID string `json:"user_id"`

	// OrganizationID is the UUID of the organization the token is
	// scoped to. All workspace listings are filtered by it.
	OrganizationID string `json:"organization_id"`

	// Email is informational and may be empty.
	Email string `json:"email,omitempty"`
}

// Provider is the contract an authentication module implements. Any
// registered implementation is a valid provider; enterprise builds
// register their own factory and are selected through the YAML
// configuration document without recompiling the core.
type Provider interface {
	// Initialize establishes provider resources. It runs once at
	// startup and a failure is fatal.
	Initialize(ctx context.Context) error

	// Shutdown releases provider resources. Best-effort; called once
	// during process teardown.
	Shutdown(ctx context.Context) error

	// ValidateToken checks an opaque bearer token. An invalid or
	// expired token returns an error satisfying errors.IsUnauthenticated;
	// other errors indicate provider failure.
	ValidateToken(ctx context.Context, token string) (*User, error)

	// CheckWorkspaceAccess reports whether the user may operate on the
	// given workspace.
	CheckWorkspaceAccess(ctx context.Context, user *User, workspaceID string) (bool, error)

	// CheckPermission reports whether the user may perform action on
	// resource.
	CheckPermission(ctx context.Context, user *User, resource, action string) (bool, error)
}
