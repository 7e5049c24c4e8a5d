package auth

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Well-known identities issued by the permissive provider. Fixed values
// keep local workspaces stable across restarts.
const (
	permissiveUserID         = "11111111-1111-1111-1111-111111111111"
	permissiveOrganizationID = "22222222-2222-2222-2222-222222222222"
)

// permissiveSettings is the typed configuration for the permissive
// provider. All fields are optional.
type permissiveSettings struct {
	UserID         string `yaml:"userId"`
	OrganizationID string `yaml:"organizationId"`
	Email          string `yaml:"email"`
}

// permissiveProvider accepts every token and grants every check. It
// exists so local and development clusters have a working auth seam
// with the same code paths as production.
type permissiveProvider struct {
	user User
}

func init() {
	Register("permissive", newPermissiveProvider)
}

func newPermissiveProvider(settings *yaml.Node) (Provider, error) {
	var cfg permissiveSettings
	if err := decodeSettings(settings, &cfg); err != nil {
		return nil, err
	}

	user := User{
		UserID:         cfg.UserID,
		OrganizationID: cfg.OrganizationID,
		Email:          cfg.Email,
	}
	if user.UserID == "" {
		user.UserID = permissiveUserID
	}
	if user.OrganizationID == "" {
		user.OrganizationID = permissiveOrganizationID
	}
	return &permissiveProvider{user: user}, nil
}

func (*permissiveProvider) Initialize(context.Context) error { return nil }

func (*permissiveProvider) Shutdown(context.Context) error { return nil }

// ValidateToken accepts any token, including an absent one.
func (p *permissiveProvider) ValidateToken(context.Context, string) (*User, error) {
	user := p.user
	return &user, nil
}

func (*permissiveProvider) CheckWorkspaceAccess(context.Context, *User, string) (bool, error) {
	return true, nil
}

func (*permissiveProvider) CheckPermission(context.Context, *User, string, string) (bool, error) {
	return true, nil
}
