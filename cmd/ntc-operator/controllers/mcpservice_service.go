package controllers

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
)

// serviceForMCPService returns the desired Service for the server.
func serviceForMCPService(m *mcpv1alpha1.MCPService) *corev1.Service {
	ls := labelsForMCPService(m)

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:        serviceName(m.Name),
			Namespace:   m.Namespace,
			Labels:      ls,
			Annotations: informationalAnnotations(m),
		},
		Spec: corev1.ServiceSpec{
			Selector: ls,
			Ports: []corev1.ServicePort{{
				Port:       servicePort(m),
				TargetPort: intstr.FromInt32(containerPort(m)),
				Protocol:   corev1.ProtocolTCP,
				Name:       "http",
			}},
		},
	}
}

// configMapForMCPService returns the ConfigMap holding the literal
// environment, or nil when every entry resolves elsewhere. Keys that
// were promoted to workspace-secret references are excluded so the
// plain value is not retained anywhere.
func configMapForMCPService(m *mcpv1alpha1.MCPService, secretKeys map[string]bool) *corev1.ConfigMap {
	data := make(map[string]string, len(m.Spec.Environment))
	for k, v := range m.Spec.Environment {
		if secretKeys[k] {
			continue
		}
		data[k] = v
	}
	if len(data) == 0 {
		return nil
	}

	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      envConfigMapName(m.Name),
			Namespace: m.Namespace,
			Labels:    labelsForMCPService(m),
		},
		Data: data,
	}
}
