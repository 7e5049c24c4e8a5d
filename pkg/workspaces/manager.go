// Package workspaces manages workspace lifecycle. A workspace is a
// cluster namespace carrying the tenancy labels; deleting the namespace
// cascades every server inside it.
package workspaces

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/kubernetes"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
)

// namespacePrefix prefixes every workspace namespace name.
const namespacePrefix = "ws-"

// maxBaseNameLength keeps "ws-{base}-{uuid}" inside the 63-character
// DNS label limit (prefix 3 + hyphen 1 + uuid 36).
const maxBaseNameLength = 23

// SecretName is the per-workspace secret holding user-supplied values.
// This package is the sole writer; the operator only reads key names.
const SecretName = "workspace-secrets"

// Workspace is the API view of a workspace namespace.
type Workspace struct {
	ID             string    `json:"workspace_id"`
	Name           string    `json:"workspace_name"`
	Namespace      string    `json:"namespace"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Manager performs workspace operations against the cluster API.
type Manager struct {
	client kubernetes.Interface
}

// NewManager creates a workspace Manager backed by the given clientset.
func NewManager(client kubernetes.Interface) *Manager {
	return &Manager{client: client}
}

// Create provisions a new workspace namespace for the given user. The
// workspace name is "{base}-{workspace_id}", immutable after creation.
// The description is informational only and stored as an annotation.
func (m *Manager) Create(ctx context.Context, baseName, description string, user *auth.User) (*Workspace, error) {
	if errs := validation.IsDNS1123Label(baseName); len(errs) > 0 || len(baseName) > maxBaseNameLength {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("Failed to create workspace '%s': name must be a DNS label of at most %d characters", baseName, maxBaseNameLength), nil)
	}

	workspaceID := uuid.NewString()
	id := labels.Identity{
		WorkspaceID:    workspaceID,
		WorkspaceName:  fmt.Sprintf("%s-%s", baseName, workspaceID),
		UserID:         user.UserID,
		OrganizationID: user.OrganizationID,
	}
	if err := id.Validate(); err != nil {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("Failed to create workspace '%s': invalid identity", baseName), err)
	}

	namespace := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   namespacePrefix + id.WorkspaceName,
			Labels: labels.ForWorkspaceNamespace(id),
		},
	}
	if description != "" {
		namespace.Annotations = map[string]string{labels.AnnotationDescription: description}
	}

	created, err := retryTransient(ctx, func() (*corev1.Namespace, error) {
		return m.client.CoreV1().Namespaces().Create(ctx, namespace, metav1.CreateOptions{})
	})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil, errors.NewConflictError(
				fmt.Sprintf("Failed to create workspace '%s': namespace %s already exists", baseName, namespace.Name), err)
		}
		return nil, clusterError(fmt.Sprintf("Failed to create workspace '%s': cluster request failed", baseName), err)
	}
	return workspaceFromNamespace(created)
}

// List returns every workspace belonging to the organization. Namespaces
// carrying the workspace marker but broken tenancy labels are skipped
// with a warning rather than failing the whole listing.
func (m *Manager) List(ctx context.Context, organizationID string) ([]Workspace, error) {
	namespaces, err := retryTransient(ctx, func() (*corev1.NamespaceList, error) {
		return m.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{
			LabelSelector: labels.OrganizationSelector(organizationID),
		})
	})
	if err != nil {
		return nil, clusterError("Failed to list workspaces: cluster request failed", err)
	}

	workspaces := make([]Workspace, 0, len(namespaces.Items))
	for i := range namespaces.Items {
		ws, err := workspaceFromNamespace(&namespaces.Items[i])
		if err != nil {
			logger.Warnf("Skipping namespace %s with invalid tenancy labels: %v", namespaces.Items[i].Name, err)
			continue
		}
		workspaces = append(workspaces, *ws)
	}
	return workspaces, nil
}

// Get returns the workspace with the given ID, scoped to the
// organization. A marked namespace with broken labels is an internal
// error here, not a skip: the caller asked for this workspace
// specifically.
func (m *Manager) Get(ctx context.Context, workspaceID, organizationID string) (*Workspace, error) {
	namespace, err := m.resolveNamespace(ctx, workspaceID, organizationID)
	if err != nil {
		return nil, err
	}
	ws, err := workspaceFromNamespace(namespace)
	if err != nil {
		return nil, errors.NewInvariantViolationError(
			fmt.Sprintf("Failed to get workspace '%s': namespace has invalid tenancy labels", workspaceID), err)
	}
	return ws, nil
}

// Delete removes the workspace namespace; the cluster cascades deletion
// of everything inside it.
func (m *Manager) Delete(ctx context.Context, workspaceID, organizationID string) error {
	namespace, err := m.resolveNamespace(ctx, workspaceID, organizationID)
	if err != nil {
		return err
	}
	_, err = retryTransient(ctx, func() (struct{}, error) {
		return struct{}{}, m.client.CoreV1().Namespaces().Delete(ctx, namespace.Name, metav1.DeleteOptions{})
	})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return clusterError(fmt.Sprintf("Failed to delete workspace '%s': cluster request failed", workspaceID), err)
	}
	return nil
}

// Namespace resolves the namespace name for a workspace ID. Used by the
// server manager to address resources inside the workspace.
func (m *Manager) Namespace(ctx context.Context, workspaceID, organizationID string) (string, error) {
	namespace, err := m.resolveNamespace(ctx, workspaceID, organizationID)
	if err != nil {
		return "", err
	}
	return namespace.Name, nil
}

// UpdateSecrets merges the given values into the workspace secret.
// Writes replace the secret object wholesale, so concurrent writers
// serialize on the resource version. A nil value deletes the key.
func (m *Manager) UpdateSecrets(ctx context.Context, workspaceID, organizationID string, values map[string]*string) error {
	namespace, err := m.resolveNamespace(ctx, workspaceID, organizationID)
	if err != nil {
		return err
	}

	secret, err := m.client.CoreV1().Secrets(namespace.Name).Get(ctx, SecretName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		secret = &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      SecretName,
				Namespace: namespace.Name,
				Labels:    namespace.Labels,
			},
			Data: map[string][]byte{},
		}
		applySecretValues(secret, values)
		_, err = retryTransient(ctx, func() (*corev1.Secret, error) {
			return m.client.CoreV1().Secrets(namespace.Name).Create(ctx, secret, metav1.CreateOptions{})
		})
		if err != nil {
			return clusterError(fmt.Sprintf("Failed to create secret '%s/%s': cluster request failed", namespace.Name, SecretName), err)
		}
		return nil
	}
	if err != nil {
		return clusterError(fmt.Sprintf("Failed to read secret '%s/%s': cluster request failed", namespace.Name, SecretName), err)
	}

	if secret.Data == nil {
		secret.Data = map[string][]byte{}
	}
	applySecretValues(secret, values)
	_, err = retryTransient(ctx, func() (*corev1.Secret, error) {
		return m.client.CoreV1().Secrets(namespace.Name).Update(ctx, secret, metav1.UpdateOptions{})
	})
	if err != nil {
		return clusterError(fmt.Sprintf("Failed to update secret '%s/%s': cluster request failed", namespace.Name, SecretName), err)
	}
	return nil
}

func applySecretValues(secret *corev1.Secret, values map[string]*string) {
	for key, value := range values {
		if value == nil {
			delete(secret.Data, key)
			continue
		}
		secret.Data[key] = []byte(*value)
	}
}

// resolveNamespace finds the marked namespace for a workspace ID inside
// the organization. Absence maps to NotFound regardless of whether the
// namespace exists for another organization.
func (m *Manager) resolveNamespace(ctx context.Context, workspaceID, organizationID string) (*corev1.Namespace, error) {
	if _, err := uuid.Parse(workspaceID); err != nil {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("Failed to resolve workspace '%s': ID is not a valid UUID", workspaceID), err)
	}

	selector := fmt.Sprintf("%s,%s=%s", labels.OrganizationSelector(organizationID), labels.LabelWorkspaceID, workspaceID)
	namespaces, err := retryTransient(ctx, func() (*corev1.NamespaceList, error) {
		return m.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{LabelSelector: selector})
	})
	if err != nil {
		return nil, clusterError(fmt.Sprintf("Failed to resolve workspace '%s': cluster request failed", workspaceID), err)
	}
	if len(namespaces.Items) == 0 {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("Failed to resolve workspace '%s': not found in organization", workspaceID), nil)
	}
	return &namespaces.Items[0], nil
}

func workspaceFromNamespace(namespace *corev1.Namespace) (*Workspace, error) {
	id := labels.FromLabels(namespace.Labels)
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &Workspace{
		ID:             id.WorkspaceID,
		Name:           id.WorkspaceName,
		Namespace:      namespace.Name,
		Description:    namespace.Annotations[labels.AnnotationDescription],
		OrganizationID: id.OrganizationID,
		UserID:         id.UserID,
		Status:         workspaceStatus(namespace),
		CreatedAt:      namespace.CreationTimestamp.Time,
	}, nil
}

func workspaceStatus(namespace *corev1.Namespace) string {
	if namespace.Status.Phase == corev1.NamespaceTerminating {
		return "deleting"
	}
	return "created"
}
