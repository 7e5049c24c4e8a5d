package controllers

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

// deploymentForMCPService returns the desired Deployment for the
// service. Pure: all external data (image resolution, workspace secret
// keys) is passed in by the reconciler.
func deploymentForMCPService(m *mcpv1alpha1.MCPService, image *imageRef, secretKeys map[string]bool) *appsv1.Deployment {
	ls := labelsForMCPService(m)

	container := corev1.Container{
		Name:            mcpContainerName,
		Image:           image.Image,
		ImagePullPolicy: image.PullPolicy,
		Env:             envForMCPService(m, image.BundleEnv, secretKeys),
		Resources:       resourceRequirementsForMCPService(m),
		Ports: []corev1.ContainerPort{{
			ContainerPort: containerPort(m),
			Name:          "http",
			Protocol:      corev1.ProtocolTCP,
		}},
		LivenessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: healthPath(m),
					Port: intstr.FromString("http"),
				},
			},
			InitialDelaySeconds: 30,
			PeriodSeconds:       10,
			TimeoutSeconds:      5,
			FailureThreshold:    3,
		},
		ReadinessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: readinessPath(m),
					Port: intstr.FromString("http"),
				},
			},
			InitialDelaySeconds: 5,
			PeriodSeconds:       5,
			TimeoutSeconds:      3,
			FailureThreshold:    3,
		},
		// Hardened defaults, not configurable per service.
		SecurityContext: &corev1.SecurityContext{
			RunAsNonRoot:             ptr.To(true),
			ReadOnlyRootFilesystem:   ptr.To(true),
			AllowPrivilegeEscalation: ptr.To(false),
			Capabilities: &corev1.Capabilities{
				Drop: []corev1.Capability{"ALL"},
			},
		},
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:        m.Name,
			Namespace:   m.Namespace,
			Labels:      ls,
			Annotations: informationalAnnotations(m),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(desiredReplicas(m)),
			Selector: &metav1.LabelSelector{
				MatchLabels: ls,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: ls,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
					SecurityContext: &corev1.PodSecurityContext{
						RunAsNonRoot: ptr.To(true),
					},
				},
			},
		},
	}
}

// readinessPath prefers the server-declared health path, falling back
// to the routed one.
func readinessPath(m *mcpv1alpha1.MCPService) string {
	if m.Spec.Deployment.HealthPath != "" {
		return m.Spec.Deployment.HealthPath
	}
	return healthPath(m)
}

// resourceRequirementsForMCPService returns the resource requirements
// for the server container.
func resourceRequirementsForMCPService(m *mcpv1alpha1.MCPService) corev1.ResourceRequirements {
	resources := corev1.ResourceRequirements{}
	if m.Spec.Resources.Limits.CPU != "" || m.Spec.Resources.Limits.Memory != "" {
		resources.Limits = corev1.ResourceList{}
		if m.Spec.Resources.Limits.CPU != "" {
			resources.Limits[corev1.ResourceCPU] = resource.MustParse(m.Spec.Resources.Limits.CPU)
		}
		if m.Spec.Resources.Limits.Memory != "" {
			resources.Limits[corev1.ResourceMemory] = resource.MustParse(m.Spec.Resources.Limits.Memory)
		}
	}
	if m.Spec.Resources.Requests.CPU != "" || m.Spec.Resources.Requests.Memory != "" {
		resources.Requests = corev1.ResourceList{}
		if m.Spec.Resources.Requests.CPU != "" {
			resources.Requests[corev1.ResourceCPU] = resource.MustParse(m.Spec.Resources.Requests.CPU)
		}
		if m.Spec.Resources.Requests.Memory != "" {
			resources.Requests[corev1.ResourceMemory] = resource.MustParse(m.Spec.Resources.Requests.Memory)
		}
	}
	return resources
}

// informationalAnnotations copies the non-load-bearing metadata
// annotations from the MCPService onto its children.
func informationalAnnotations(m *mcpv1alpha1.MCPService) map[string]string {
	annotations := make(map[string]string)
	for _, key := range []string{
		labels.AnnotationDescription,
		labels.AnnotationVersion,
	} {
		if v, ok := m.Annotations[key]; ok {
			annotations[key] = v
		}
	}
	return annotations
}
