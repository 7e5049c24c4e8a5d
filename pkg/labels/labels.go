// Package labels manages the tenancy labels carried by every resource
// the platform creates. Labels are the authoritative source of tenancy
// metadata; a resource missing a required label is invalid.
package labels

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// LabelPrefix is the prefix for all NimbleTools labels
	LabelPrefix = "mcp.nimbletools.dev"

	// LabelWorkspaceID is the label that contains the workspace UUID
	LabelWorkspaceID = LabelPrefix + "/workspace_id"

	// LabelWorkspaceName is the label that contains the workspace name
	LabelWorkspaceName = LabelPrefix + "/workspace_name"

	// LabelUserID is the label that contains the creating user's UUID
	LabelUserID = LabelPrefix + "/user_id"

	// LabelOrganizationID is the label that contains the owning organization's UUID
	LabelOrganizationID = LabelPrefix + "/organization_id"

	// LabelWorkspace marks a namespace as a platform workspace
	LabelWorkspace = LabelPrefix + "/workspace"

	// LabelService marks a resource as belonging to an MCP server
	LabelService = LabelPrefix + "/service"

	// LabelServer is the label that contains the server name on MCPService children
	LabelServer = LabelPrefix + "/server"

	// LabelIngressType distinguishes the mcp and health ingress rules
	LabelIngressType = LabelPrefix + "/ingress-type"

	// LabelTrueValue is the value used for boolean marker labels
	LabelTrueValue = "true"
)

// Annotation keys carrying informational metadata; not load-bearing.
const (
	// AnnotationDescription carries the human-readable server description
	AnnotationDescription = LabelPrefix + "/description"

	// AnnotationVersion carries the server definition version
	AnnotationVersion = LabelPrefix + "/version"
)

// Identity is the tenancy metadata extracted from, or stamped onto,
// a platform resource.
type Identity struct {
	WorkspaceID    string
	WorkspaceName  string
	UserID         string
	OrganizationID string
}

// Validate checks that all identity fields are present and that the
// ID fields are well-formed UUIDs.
func (id Identity) Validate() error {
	if id.WorkspaceName == "" {
		return fmt.Errorf("missing label %s", LabelWorkspaceName)
	}
	for label, value := range map[string]string{
		LabelWorkspaceID:    id.WorkspaceID,
		LabelUserID:         id.UserID,
		LabelOrganizationID: id.OrganizationID,
	} {
		if value == "" {
			return fmt.Errorf("missing label %s", label)
		}
		if _, err := uuid.Parse(value); err != nil {
			return fmt.Errorf("label %s is not a valid UUID: %q", label, value)
		}
	}
	return nil
}

// Apply stamps the identity labels onto the given label map.
func (id Identity) Apply(labels map[string]string) {
	labels[LabelWorkspaceID] = id.WorkspaceID
	labels[LabelWorkspaceName] = id.WorkspaceName
	labels[LabelUserID] = id.UserID
	labels[LabelOrganizationID] = id.OrganizationID
}

// FromLabels extracts the tenancy identity from a resource's labels.
// The returned identity may be incomplete; callers decide whether to
// treat that as skip-and-warn (lists) or an internal error (details)
// by calling Validate.
func FromLabels(labels map[string]string) Identity {
	return Identity{
		WorkspaceID:    labels[LabelWorkspaceID],
		WorkspaceName:  labels[LabelWorkspaceName],
		UserID:         labels[LabelUserID],
		OrganizationID: labels[LabelOrganizationID],
	}
}

// IsWorkspaceNamespace checks whether a namespace carries the
// workspace marker label.
func IsWorkspaceNamespace(labels map[string]string) bool {
	return labels[LabelWorkspace] == LabelTrueValue
}

// ForWorkspaceNamespace returns the full label set for a workspace
// namespace.
func ForWorkspaceNamespace(id Identity) map[string]string {
	labels := map[string]string{
		LabelWorkspace: LabelTrueValue,
	}
	id.Apply(labels)
	return labels
}

// ForService returns the label set stamped on an MCPService and its
// children. The "app" label keys workload selectors to the server.
func ForService(id Identity, serverName string) map[string]string {
	labels := map[string]string{
		"app":        serverName,
		LabelService: LabelTrueValue,
		LabelServer:  serverName,
	}
	id.Apply(labels)
	return labels
}

// ServerSelector returns the label selector string used to resolve the
// pods of one server.
func ServerSelector(serverName string) string {
	return fmt.Sprintf("%s=%s", LabelServer, serverName)
}

// OrganizationSelector returns the label selector string for listing
// workspaces scoped to one organization.
func OrganizationSelector(organizationID string) string {
	return fmt.Sprintf("%s=%s,%s=%s", LabelWorkspace, LabelTrueValue, LabelOrganizationID, organizationID)
}
