package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgofake "k8s.io/client-go/kubernetes/fake"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logs"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/servers"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/workspaces"
)

const (
	testWorkspaceID    = "11111111-1111-4111-8111-111111111111"
	testUserID         = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testOrganizationID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"

	testNamespace = "ws-demo-" + testWorkspaceID
)

// stubProvider satisfies auth.Provider with configurable workspace
// access decisions.
type stubProvider struct {
	denyWorkspaces bool
}

func (*stubProvider) Initialize(context.Context) error { return nil }
func (*stubProvider) Shutdown(context.Context) error   { return nil }
func (*stubProvider) ValidateToken(context.Context, string) (*auth.User, error) {
	return &auth.User{UserID: testUserID, OrganizationID: testOrganizationID}, nil
}
func (p *stubProvider) CheckWorkspaceAccess(context.Context, *auth.User, string) (bool, error) {
	return !p.denyWorkspaces, nil
}
func (*stubProvider) CheckPermission(context.Context, *auth.User, string, string) (bool, error) {
	return true, nil
}

func testUser() *auth.User {
	return &auth.User{UserID: testUserID, OrganizationID: testOrganizationID}
}

func testIdentity() labels.Identity {
	return labels.Identity{
		WorkspaceID:    testWorkspaceID,
		WorkspaceName:  "demo-" + testWorkspaceID,
		UserID:         testUserID,
		OrganizationID: testOrganizationID,
	}
}

func workspaceNamespace() *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   testNamespace,
			Labels: labels.ForWorkspaceNamespace(testIdentity()),
		},
	}
}

func existingServer() *mcpv1alpha1.MCPService {
	return &mcpv1alpha1.MCPService{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "echo",
			Namespace: testNamespace,
			Labels:    labels.ForService(testIdentity(), "echo"),
		},
		Spec: mcpv1alpha1.MCPServiceSpec{
			Container: mcpv1alpha1.ContainerSpec{Image: "ghcr.io/acme/echo:1.0.0"},
		},
	}
}

// routerTestContext is a WorkspaceRouter wired over fake clients.
type routerTestContext struct {
	handler  http.Handler
	provider *stubProvider
}

func setupRouterTest(t *testing.T, clusterObjects []runtime.Object, crdObjects ...ctrlclient.Object) *routerTestContext {
	t.Helper()

	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, mcpv1alpha1.AddToScheme(scheme))

	clientset := clientgofake.NewClientset(clusterObjects...)
	ctrlClient := fake.NewClientBuilder().WithScheme(scheme).WithObjects(crdObjects...).Build()

	wsManager := workspaces.NewManager(clientset)
	srvManager := servers.NewManager(ctrlClient, wsManager, logs.NewAggregator(clientset), "amd64")

	provider := &stubProvider{}
	return &routerTestContext{
		handler:  WorkspaceRouter(wsManager, srvManager, provider),
		provider: provider,
	}
}

// do issues an authenticated request against the router.
func (tc *routerTestContext) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithUser(req.Context(), testUser()))

	rec := httptest.NewRecorder()
	tc.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestCreateWorkspaceEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, nil)

	rec := tc.do(t, http.MethodPost, "/", `{"name": "demo", "description": "Demo workspace"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp workspaceResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, apiVersion, resp.Version)
	require.NotNil(t, resp.Workspace)
	assert.NotEmpty(t, resp.Workspace.ID)
	assert.True(t, strings.HasPrefix(resp.Workspace.Namespace, "ws-demo-"))
	assert.Equal(t, "Demo workspace", resp.Workspace.Description)
	assert.Equal(t, "created", resp.Workspace.Status)

	// The new workspace shows up in the listing.
	rec = tc.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list workspaceListResponse
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestCreateWorkspaceInvalidName(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, nil)

	rec := tc.do(t, http.MethodPost, "/", `{"name": "Not Valid"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetWorkspaceEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()})

	rec := tc.do(t, http.MethodGet, "/"+testWorkspaceID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp workspaceResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, testWorkspaceID, resp.Workspace.ID)

	rec = tc.do(t, http.MethodGet, "/99999999-9999-4999-8999-999999999999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkspaceAccessDenied(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()})
	tc.provider.denyWorkspaces = true

	rec := tc.do(t, http.MethodGet, "/"+testWorkspaceID, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteWorkspaceEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()})

	rec := tc.do(t, http.MethodDelete, "/"+testWorkspaceID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = tc.do(t, http.MethodDelete, "/"+testWorkspaceID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateServerEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()})

	doc := `{
	  "name": "ai.nimbletools/echo",
	  "description": "Echoes requests back",
	  "packages": [{"registryType": "oci", "identifier": "ghcr.io/acme/echo", "version": "1.0.0"}]
	}`
	rec := tc.do(t, http.MethodPost, "/"+testWorkspaceID+"/servers", doc)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp serverResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "echo", resp.Server.Name)

	// Duplicate submission conflicts. The error body carries the
	// operation and resource, not internal cluster detail.
	rec = tc.do(t, http.MethodPost, "/"+testWorkspaceID+"/servers", doc)
	require.Equal(t, http.StatusConflict, rec.Code)

	var errResp errorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "Failed to create server 'echo': already exists in workspace "+testWorkspaceID, errResp.Detail)
}

func TestCreateServerTranslationError(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()})

	rec := tc.do(t, http.MethodPost, "/"+testWorkspaceID+"/servers", `{"packages": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "INVALID_SERVER_DEFINITION", resp.Code)
}

func TestServerArchitectureMismatchCode(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()})

	doc := `{
	  "name": "ai.nimbletools/echo",
	  "packages": [{"registryType": "mcpb", "identifier": "https://cdn.example.com/echo-linux-arm64.mcpb"}]
	}`
	rec := tc.do(t, http.MethodPost, "/"+testWorkspaceID+"/servers", doc)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ARCHITECTURE_MISMATCH", resp.Code)
}

func TestUpdateServerEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()}, existingServer())

	rec := tc.do(t, http.MethodPatch, "/"+testWorkspaceID+"/servers/echo", `{"replicas": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = tc.do(t, http.MethodPatch, "/"+testWorkspaceID+"/servers/missing", `{"replicas": 2}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestartServerEndpoint(t *testing.T) {
	t.Parallel()

	// No workload exists yet, so restart reports a conflict.
	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()}, existingServer())

	rec := tc.do(t, http.MethodPost, "/"+testWorkspaceID+"/servers/echo/restart", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestServerLogsEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()}, existingServer())

	rec := tc.do(t, http.MethodGet, "/"+testWorkspaceID+"/servers/echo/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp logsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 0, resp.Count)
	assert.False(t, resp.HasMore)
	assert.NotNil(t, resp.Logs)

	rec = tc.do(t, http.MethodGet, "/"+testWorkspaceID+"/servers/missing/logs", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerLogsQueryValidation(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()}, existingServer())

	tests := []struct {
		name  string
		query string
	}{
		{name: "limit not a number", query: "limit=ten"},
		{name: "explicit zero limit", query: "limit=0"},
		{name: "negative limit", query: "limit=-5"},
		{name: "limit out of range", query: "limit=1001"},
		{name: "bad since", query: "since=yesterday"},
		{name: "unknown level", query: "level=loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := tc.do(t, http.MethodGet, "/"+testWorkspaceID+"/servers/echo/logs?"+tt.query, "")
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestDeleteServerEndpoint(t *testing.T) {
	t.Parallel()

	tc := setupRouterTest(t, []runtime.Object{workspaceNamespace()}, existingServer())

	rec := tc.do(t, http.MethodDelete, "/"+testWorkspaceID+"/servers/echo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp deleteResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Deleted)

	rec = tc.do(t, http.MethodGet, "/"+testWorkspaceID+"/servers/echo", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
