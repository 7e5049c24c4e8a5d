package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadProviderPermissive(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "provider: permissive\n")
	provider, err := LoadProvider(path)
	require.NoError(t, err)
	require.NoError(t, provider.Initialize(context.Background()))

	user, err := provider.ValidateToken(context.Background(), "anything")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, permissiveUserID, user.UserID)
	assert.Equal(t, permissiveOrganizationID, user.OrganizationID)

	ok, err := provider.CheckWorkspaceAccess(context.Background(), user, "ws-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = provider.CheckPermission(context.Background(), user, "servers", "delete")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadProviderPermissiveSettings(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `provider: permissive
settings:
  userId: 7c9e6679-7425-40de-944b-e07fc1f90ae7
  organizationId: f47ac10b-58cc-4372-a567-0e02b2c3d479
  email: dev@example.com
`)
	provider, err := LoadProvider(path)
	require.NoError(t, err)

	user, err := provider.ValidateToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", user.UserID)
	assert.Equal(t, "f47ac10b-58cc-4372-a567-0e02b2c3d479", user.OrganizationID)
	assert.Equal(t, "dev@example.com", user.Email)
}

func TestLoadProviderRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `provider: permissive
settings:
  Bogus: true
`)
	_, err := LoadProvider(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestLoadProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "provider: enterprise-sso\n"},
		{"missing provider name", "settings: {}\n"},
		{"top-level unknown key", "provider: permissive\nextra: nope\n"},
		{"not yaml", "{{{{\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadProvider(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}

func TestLoadProviderRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := LoadProvider("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = LoadProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegisterCustomProvider(t *testing.T) {
	t.Parallel()

	Register("test-static", func(_ *yaml.Node) (Provider, error) {
		return &permissiveProvider{user: User{UserID: "u", OrganizationID: "o"}}, nil
	})

	provider, err := loadProviderFromBytes([]byte("provider: test-static\n"))
	require.NoError(t, err)
	user, err := provider.ValidateToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u", user.UserID)
}
