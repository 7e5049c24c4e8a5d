package controllers

import (
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
)

// concurrencyMetricName is the per-pod metric the autoscaler targets.
// The metrics adapter exposes it from the runtime's request gauge.
const concurrencyMetricName = "concurrent_requests"

// hpaForMCPService returns the desired HorizontalPodAutoscaler, or nil
// when autoscaling is disabled (no target concurrency, or the service
// is pinned to zero replicas).
func hpaForMCPService(m *mcpv1alpha1.MCPService) *autoscalingv2.HorizontalPodAutoscaler {
	if m.Spec.Scaling == nil || m.Spec.Scaling.TargetConcurrency <= 0 {
		return nil
	}
	if desiredReplicas(m) == 0 {
		return nil
	}

	// The HPA API requires minReplicas >= 1; scale-to-zero is expressed
	// by pinning spec.replicas to 0 instead.
	minReplicas := m.Spec.Scaling.MinReplicas
	if minReplicas < 1 {
		minReplicas = 1
	}
	maxReplicas := m.Spec.Scaling.MaxReplicas
	if maxReplicas < minReplicas {
		maxReplicas = minReplicas
	}

	hpa := &autoscalingv2.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{
			Name:      m.Name,
			Namespace: m.Namespace,
			Labels:    labelsForMCPService(m),
		},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       m.Name,
			},
			MinReplicas: int32Ptr(minReplicas),
			MaxReplicas: maxReplicas,
			Metrics: []autoscalingv2.MetricSpec{{
				Type: autoscalingv2.PodsMetricSourceType,
				Pods: &autoscalingv2.PodsMetricSource{
					Metric: autoscalingv2.MetricIdentifier{
						Name: concurrencyMetricName,
					},
					Target: autoscalingv2.MetricTarget{
						Type:         autoscalingv2.AverageValueMetricType,
						AverageValue: resource.NewQuantity(int64(m.Spec.Scaling.TargetConcurrency), resource.DecimalSI),
					},
				},
			}},
		},
	}

	if m.Spec.Scaling.ScaleDownDelaySeconds > 0 {
		hpa.Spec.Behavior = &autoscalingv2.HorizontalPodAutoscalerBehavior{
			ScaleDown: &autoscalingv2.HPAScalingRules{
				StabilizationWindowSeconds: int32Ptr(m.Spec.Scaling.ScaleDownDelaySeconds),
			},
		}
	}

	return hpa
}
