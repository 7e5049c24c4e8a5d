package controllers

import (
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

// rewriteTargetAnnotation configures the ingress controller to strip
// the external routing prefix before forwarding to the container.
const rewriteTargetAnnotation = "nginx.ingress.kubernetes.io/rewrite-target"

// ingressesForMCPService returns the two desired Ingress objects per
// server: one routing {base}/mcp to the container MCP endpoint and one
// routing {base}/health to its health endpoint. Separate objects are
// required because the rewrite target is a per-ingress annotation; the
// ingress-type label tells them apart.
func ingressesForMCPService(m *mcpv1alpha1.MCPService, platformDomain string) []*networkingv1.Ingress {
	base := routingBasePath(m)
	return []*networkingv1.Ingress{
		ingressRule(m, platformDomain, "mcp", fmt.Sprintf("%s/mcp", base), mcpPath(m)),
		ingressRule(m, platformDomain, "health", fmt.Sprintf("%s/health", base), healthPath(m)),
	}
}

func ingressRule(m *mcpv1alpha1.MCPService, platformDomain, ingressType, path, rewriteTo string) *networkingv1.Ingress {
	ls := labelsForMCPService(m)
	ls[labels.LabelIngressType] = ingressType

	pathType := networkingv1.PathTypePrefix
	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("%s-%s", serviceName(m.Name), ingressType),
			Namespace: m.Namespace,
			Labels:    ls,
			Annotations: map[string]string{
				rewriteTargetAnnotation: rewriteTo,
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: platformDomain,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     path,
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: serviceName(m.Name),
									Port: networkingv1.ServiceBackendPort{
										Number: servicePort(m),
									},
								},
							},
						}},
					},
				},
			}},
		},
	}
}
