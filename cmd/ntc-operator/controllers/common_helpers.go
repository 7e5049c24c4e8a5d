package controllers

import (
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

// WorkspaceSecretName is the per-workspace secret holding user-supplied
// values. The control-plane is the sole writer; the operator only reads
// key names when building env-var references.
const WorkspaceSecretName = "workspace-secrets"

// mcpContainerName is the name of the server container in pod templates
const mcpContainerName = "mcp"

const (
	defaultContainerPort int32 = 8000
	defaultHealthPath          = "/health"
	defaultMCPPath             = "/mcp"
)

func int32Ptr(i int32) *int32 { return &i }

// labelsForMCPService returns the labels for selecting the resources
// belonging to the given MCPService.
func labelsForMCPService(m *mcpv1alpha1.MCPService) map[string]string {
	return labels.ForService(labels.FromLabels(m.Labels), m.Name)
}

func containerPort(m *mcpv1alpha1.MCPService) int32 {
	if m.Spec.Container.Port != 0 {
		return m.Spec.Container.Port
	}
	return defaultContainerPort
}

func servicePort(m *mcpv1alpha1.MCPService) int32 {
	if m.Spec.Routing.Port != 0 {
		return m.Spec.Routing.Port
	}
	return containerPort(m)
}

func healthPath(m *mcpv1alpha1.MCPService) string {
	if m.Spec.Routing.HealthPath != "" {
		return m.Spec.Routing.HealthPath
	}
	return defaultHealthPath
}

func mcpPath(m *mcpv1alpha1.MCPService) string {
	if m.Spec.Routing.MCPPath != "" {
		return m.Spec.Routing.MCPPath
	}
	return defaultMCPPath
}

// routingBasePath is the external path prefix for the service:
// /{workspace_id}/{server_name}, unless overridden in the spec.
func routingBasePath(m *mcpv1alpha1.MCPService) string {
	if m.Spec.Routing.Path != "" {
		return m.Spec.Routing.Path
	}
	return fmt.Sprintf("/%s/%s", m.Labels[labels.LabelWorkspaceID], m.Name)
}

func desiredReplicas(m *mcpv1alpha1.MCPService) int32 {
	if m.Spec.Replicas != nil {
		return *m.Spec.Replicas
	}
	if m.Spec.Scaling != nil && m.Spec.Scaling.MinReplicas > 0 {
		return m.Spec.Scaling.MinReplicas
	}
	return 1
}

// envForMCPService assembles the container environment in a stable
// order: bundle download parameters, then literal environment entries
// (alphabetized), then declared environment variables (input order).
// Stability keeps spurious patches out of the merge step.
//
// secretKeys is the set of key names present in the workspace secret.
// A literal or declared entry whose name exists there resolves to a
// secret reference; the plain value is not emitted alongside it.
func envForMCPService(m *mcpv1alpha1.MCPService, bundleEnv []corev1.EnvVar, secretKeys map[string]bool) []corev1.EnvVar {
	env := make([]corev1.EnvVar, 0, len(bundleEnv)+len(m.Spec.Environment)+len(m.Spec.EnvironmentVariables))
	env = append(env, bundleEnv...)

	literalKeys := make([]string, 0, len(m.Spec.Environment))
	for k := range m.Spec.Environment {
		literalKeys = append(literalKeys, k)
	}
	sort.Strings(literalKeys)

	for _, k := range literalKeys {
		if secretKeys[k] {
			env = append(env, secretEnvVar(k))
			continue
		}
		env = append(env, corev1.EnvVar{
			Name: k,
			ValueFrom: &corev1.EnvVarSource{
				ConfigMapKeyRef: &corev1.ConfigMapKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: envConfigMapName(m.Name),
					},
					Key: k,
				},
			},
		})
	}

	for _, declared := range m.Spec.EnvironmentVariables {
		if declared.IsSecret || secretKeys[declared.Name] {
			env = append(env, secretEnvVar(declared.Name))
		}
		// Declared but unresolvable entries are left to the runtime,
		// which reports missing required variables at startup.
	}

	return env
}

func secretEnvVar(key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: key,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{
					Name: WorkspaceSecretName,
				},
				Key: key,
			},
		},
	}
}

func envConfigMapName(serviceName string) string {
	return fmt.Sprintf("%s-env", serviceName)
}

func serviceName(serviceName string) string {
	return fmt.Sprintf("mcp-%s", serviceName)
}

// serviceEndpointURL generates the cluster-local URL for a server.
func serviceEndpointURL(m *mcpv1alpha1.MCPService) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", serviceName(m.Name), m.Namespace, servicePort(m))
}
