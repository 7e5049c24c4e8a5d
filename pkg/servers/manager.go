// Package servers manages MCP server lifecycle inside workspace
// namespaces. The cluster API is the only store: an MCPService object
// is the server, and the operator owns everything downstream of it.
package servers

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logs"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/translator"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/workspaces"
)

// restartedAtAnnotation is the pod-template annotation that triggers a
// rolling restart. The operator preserves it when rewriting the
// workload spec.
const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// Summary is the API view of one MCP server.
type Summary struct {
	Name          string    `json:"name"`
	WorkspaceID   string    `json:"workspace_id"`
	Status        string    `json:"status"`
	Endpoint      string    `json:"endpoint,omitempty"`
	Description   string    `json:"description,omitempty"`
	Version       string    `json:"version,omitempty"`
	Replicas      int32     `json:"replicas"`
	ReadyReplicas int32     `json:"ready_replicas"`
	CreatedAt     time.Time `json:"created_at"`
}

// UpdateRequest is a partial server update. Nil fields are left alone;
// a nil map value removes the entry.
type UpdateRequest struct {
	Replicas    *int32             `json:"replicas,omitempty"`
	Scaling     *ScalingUpdate     `json:"scaling,omitempty"`
	Environment map[string]*string `json:"environment,omitempty"`
	Secrets     map[string]*string `json:"secrets,omitempty"`
}

// ScalingUpdate adjusts autoscaling bounds.
type ScalingUpdate struct {
	MinReplicas           *int32 `json:"min_replicas,omitempty"`
	MaxReplicas           *int32 `json:"max_replicas,omitempty"`
	TargetConcurrency     *int32 `json:"target_concurrency,omitempty"`
	ScaleDownDelaySeconds *int32 `json:"scale_down_delay_seconds,omitempty"`
}

// Manager performs server operations against the cluster API.
type Manager struct {
	client     ctrlclient.Client
	workspaces *workspaces.Manager
	logs       *logs.Aggregator
	arch       string

	// now is stubbed in restart tests
	now func() time.Time
}

// NewManager creates a server Manager. arch is the cluster node
// architecture used for package selection at translation time.
func NewManager(client ctrlclient.Client, ws *workspaces.Manager, aggregator *logs.Aggregator, arch string) *Manager {
	return &Manager{
		client:     client,
		workspaces: ws,
		logs:       aggregator,
		arch:       arch,
		now:        time.Now,
	}
}

// Create translates a server definition and creates the MCPService in
// the workspace namespace. A server with the same name already present
// is a conflict.
func (m *Manager) Create(ctx context.Context, workspaceID string, user *auth.User, doc []byte) (*Summary, error) {
	ws, err := m.workspaces.Get(ctx, workspaceID, user.OrganizationID)
	if err != nil {
		return nil, err
	}

	id := labels.Identity{
		WorkspaceID:    ws.ID,
		WorkspaceName:  ws.Name,
		UserID:         user.UserID,
		OrganizationID: ws.OrganizationID,
	}
	mcpService, err := translator.Translate(doc, id, m.arch)
	if err != nil {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("Failed to create server: %s", errors.Message(err)), err).
			WithCode(errors.Code(err))
	}
	mcpService.Namespace = ws.Namespace

	if err := m.client.Create(ctx, mcpService); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil, errors.NewConflictError(
				fmt.Sprintf("Failed to create server '%s': already exists in workspace %s", mcpService.Name, workspaceID), err)
		}
		return nil, errors.NewInternalError(
			fmt.Sprintf("Failed to create server '%s': cluster request failed", mcpService.Name), err)
	}
	return summaryFromMCPService(mcpService), nil
}

// List returns every server in the workspace.
func (m *Manager) List(ctx context.Context, workspaceID string, user *auth.User) ([]Summary, error) {
	namespace, err := m.workspaces.Namespace(ctx, workspaceID, user.OrganizationID)
	if err != nil {
		return nil, err
	}

	var list mcpv1alpha1.MCPServiceList
	if err := m.client.List(ctx, &list, ctrlclient.InNamespace(namespace)); err != nil {
		return nil, errors.NewInternalError(
			fmt.Sprintf("Failed to list servers in workspace '%s': cluster request failed", workspaceID), err)
	}

	summaries := make([]Summary, 0, len(list.Items))
	for i := range list.Items {
		summaries = append(summaries, *summaryFromMCPService(&list.Items[i]))
	}
	return summaries, nil
}

// Get returns one server.
func (m *Manager) Get(ctx context.Context, workspaceID string, user *auth.User, name string) (*Summary, error) {
	mcpService, _, err := m.getMCPService(ctx, workspaceID, user, name)
	if err != nil {
		return nil, err
	}
	return summaryFromMCPService(mcpService), nil
}

// Update applies a partial update. Spec fields go through the
// MCPService; secret values go to the workspace secret, from where the
// operator resolves them on the next reconcile.
func (m *Manager) Update(ctx context.Context, workspaceID string, user *auth.User, name string, req UpdateRequest) (*Summary, error) {
	mcpService, _, err := m.getMCPService(ctx, workspaceID, user, name)
	if err != nil {
		return nil, err
	}

	// Validate the merged spec before touching the cluster so a bad
	// patch never half-applies (secrets are written separately).
	applyUpdate(mcpService, req)
	if err := validateServerSpec(mcpService); err != nil {
		return nil, err
	}

	if len(req.Secrets) > 0 {
		if err := m.workspaces.UpdateSecrets(ctx, workspaceID, user.OrganizationID, req.Secrets); err != nil {
			return nil, err
		}
	}

	if err := m.client.Update(ctx, mcpService); err != nil {
		if apierrors.IsConflict(err) {
			return nil, errors.NewConflictError(
				fmt.Sprintf("Failed to update server '%s': modified concurrently", name), err)
		}
		return nil, errors.NewInternalError(
			fmt.Sprintf("Failed to update server '%s': cluster request failed", name), err)
	}
	return summaryFromMCPService(mcpService), nil
}

// validateServerSpec rejects replica and scaling values the workload
// could never run with. Zero replicas is a valid scaled-to-zero state.
func validateServerSpec(mcpService *mcpv1alpha1.MCPService) error {
	if mcpService.Spec.Replicas != nil && *mcpService.Spec.Replicas < 0 {
		return errors.NewInvalidInputError(
			fmt.Sprintf("Failed to update server '%s': replicas must not be negative", mcpService.Name), nil)
	}
	if scaling := mcpService.Spec.Scaling; scaling != nil {
		if scaling.MinReplicas < 0 {
			return errors.NewInvalidInputError(
				fmt.Sprintf("Failed to update server '%s': minReplicas must not be negative", mcpService.Name), nil)
		}
		if scaling.MaxReplicas > 0 && scaling.MaxReplicas < scaling.MinReplicas {
			return errors.NewInvalidInputError(
				fmt.Sprintf("Failed to update server '%s': maxReplicas must not be below minReplicas", mcpService.Name), nil)
		}
	}
	return nil
}

// Delete removes the server; the operator tears down its children via
// owner references.
func (m *Manager) Delete(ctx context.Context, workspaceID string, user *auth.User, name string) error {
	mcpService, _, err := m.getMCPService(ctx, workspaceID, user, name)
	if err != nil {
		return err
	}
	if err := m.client.Delete(ctx, mcpService); err != nil && !apierrors.IsNotFound(err) {
		return errors.NewInternalError(
			fmt.Sprintf("Failed to delete server '%s': cluster request failed", name), err)
	}
	return nil
}

// Restart triggers a rolling restart by stamping the workload's pod
// template, the same mechanism kubectl rollout restart uses.
func (m *Manager) Restart(ctx context.Context, workspaceID string, user *auth.User, name string) error {
	_, namespace, err := m.getMCPService(ctx, workspaceID, user, name)
	if err != nil {
		return err
	}

	var deployment appsv1.Deployment
	if err := m.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &deployment); err != nil {
		if apierrors.IsNotFound(err) {
			return errors.NewConflictError(
				fmt.Sprintf("Failed to restart server '%s': no workload to restart yet", name), err)
		}
		return errors.NewInternalError(
			fmt.Sprintf("Failed to restart server '%s': cluster request failed", name), err)
	}

	patched := deployment.DeepCopy()
	if patched.Spec.Template.Annotations == nil {
		patched.Spec.Template.Annotations = map[string]string{}
	}
	patched.Spec.Template.Annotations[restartedAtAnnotation] = m.now().UTC().Format(time.RFC3339)

	if err := m.client.Patch(ctx, patched, ctrlclient.MergeFrom(&deployment)); err != nil {
		return errors.NewInternalError(
			fmt.Sprintf("Failed to restart server '%s': cluster request failed", name), err)
	}
	return nil
}

// Logs aggregates log lines across the server's pods.
func (m *Manager) Logs(ctx context.Context, workspaceID string, user *auth.User, name string, q logs.Query) (*logs.Response, error) {
	_, namespace, err := m.getMCPService(ctx, workspaceID, user, name)
	if err != nil {
		return nil, err
	}
	return m.logs.Aggregate(ctx, namespace, name, q)
}

// getMCPService resolves the workspace namespace and fetches the named
// server from it.
func (m *Manager) getMCPService(ctx context.Context, workspaceID string, user *auth.User, name string) (*mcpv1alpha1.MCPService, string, error) {
	namespace, err := m.workspaces.Namespace(ctx, workspaceID, user.OrganizationID)
	if err != nil {
		return nil, "", err
	}

	var mcpService mcpv1alpha1.MCPService
	if err := m.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &mcpService); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, "", errors.NewNotFoundError(
				fmt.Sprintf("Failed to get server '%s': not found in workspace %s", name, workspaceID), err)
		}
		return nil, "", errors.NewInternalError(
			fmt.Sprintf("Failed to get server '%s': cluster request failed", name), err)
	}
	return &mcpService, namespace, nil
}

func applyUpdate(mcpService *mcpv1alpha1.MCPService, req UpdateRequest) {
	if req.Replicas != nil {
		replicas := *req.Replicas
		mcpService.Spec.Replicas = &replicas
	}
	if req.Scaling != nil {
		if mcpService.Spec.Scaling == nil {
			mcpService.Spec.Scaling = &mcpv1alpha1.ScalingConfig{}
		}
		if req.Scaling.MinReplicas != nil {
			mcpService.Spec.Scaling.MinReplicas = *req.Scaling.MinReplicas
		}
		if req.Scaling.MaxReplicas != nil {
			mcpService.Spec.Scaling.MaxReplicas = *req.Scaling.MaxReplicas
		}
		if req.Scaling.TargetConcurrency != nil {
			mcpService.Spec.Scaling.TargetConcurrency = *req.Scaling.TargetConcurrency
		}
		if req.Scaling.ScaleDownDelaySeconds != nil {
			mcpService.Spec.Scaling.ScaleDownDelaySeconds = *req.Scaling.ScaleDownDelaySeconds
		}
	}
	if len(req.Environment) > 0 {
		if mcpService.Spec.Environment == nil {
			mcpService.Spec.Environment = map[string]string{}
		}
		for key, value := range req.Environment {
			if value == nil {
				delete(mcpService.Spec.Environment, key)
				continue
			}
			mcpService.Spec.Environment[key] = *value
		}
	}
}

func summaryFromMCPService(mcpService *mcpv1alpha1.MCPService) *Summary {
	summary := &Summary{
		Name:        mcpService.Name,
		WorkspaceID: mcpService.Labels[labels.LabelWorkspaceID],
		Status:      phaseString(mcpService.Status.Phase),
		Endpoint:    mcpService.Status.ServiceEndpoint,
		Description: mcpService.Annotations[labels.AnnotationDescription],
		Version:     mcpService.Annotations[labels.AnnotationVersion],
		CreatedAt:   mcpService.CreationTimestamp.Time,
	}
	if ds := mcpService.Status.DeploymentStatus; ds != nil {
		summary.Replicas = ds.Replicas
		summary.ReadyReplicas = ds.ReadyReplicas
	}
	return summary
}

func phaseString(phase mcpv1alpha1.MCPServicePhase) string {
	if phase == "" {
		return string(mcpv1alpha1.MCPServicePhaseUnknown)
	}
	return string(phase)
}
