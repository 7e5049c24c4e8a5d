// Package controllers contains the reconciliation logic for the MCPService custom resource.
// It drives the Deployment, Service, Ingress, ConfigMap and HPA children that
// make up a running MCP server.
package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

// mcpServiceFinalizer guards deletion so non-owned bookkeeping can be
// cleaned up before the object disappears.
const mcpServiceFinalizer = "mcpservice.mcp.nimbletools.dev/finalizer"

// restartedAtAnnotation is set on the pod template by the control plane
// to trigger a rolling restart. The reconciler must preserve it when it
// rewrites the Deployment spec, or every restart would be reverted.
const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// reconcileTimeout bounds a single reconcile pass.
const reconcileTimeout = 30 * time.Second

// MCPServiceReconciler reconciles a MCPService object
type MCPServiceReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Arch is the cluster node architecture used for package selection,
	// e.g. "amd64" or "arm64".
	Arch string

	// PlatformDomain is the external host Ingress rules are bound to.
	PlatformDomain string
}

// +kubebuilder:rbac:groups=mcp.nimbletools.dev,resources=mcpservices,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=mcp.nimbletools.dev,resources=mcpservices/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=mcp.nimbletools.dev,resources=mcpservices/finalizers,verbs=update
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=create;delete;get;list;patch;update;watch
// +kubebuilder:rbac:groups="",resources=services,verbs=create;delete;get;list;patch;update;watch
// +kubebuilder:rbac:groups="",resources=configmaps,verbs=create;delete;get;list;patch;update;watch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch
// +kubebuilder:rbac:groups=networking.k8s.io,resources=ingresses,verbs=create;delete;get;list;patch;update;watch
// +kubebuilder:rbac:groups=autoscaling,resources=horizontalpodautoscalers,verbs=create;delete;get;list;patch;update;watch

// Reconcile is part of the main kubernetes reconciliation loop which aims to
// move the current state of the cluster closer to the desired state.
//
//nolint:gocyclo
func (r *MCPServiceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()
	ctxLogger := log.FromContext(ctx)

	// Fetch the MCPService instance
	mcpService := &mcpv1alpha1.MCPService{}
	err := r.Get(ctx, req.NamespacedName, mcpService)
	if err != nil {
		if apierrors.IsNotFound(err) {
			// Request object not found, could have been deleted after reconcile request.
			// Return and don't requeue
			ctxLogger.Info("MCPService resource not found. Ignoring since object must be deleted")
			return ctrl.Result{}, nil
		}
		ctxLogger.Error(err, "Failed to get MCPService")
		return ctrl.Result{}, err
	}

	// Check if the MCPService instance is marked to be deleted
	if mcpService.GetDeletionTimestamp() != nil {
		if controllerutil.ContainsFinalizer(mcpService, mcpServiceFinalizer) {
			if err := r.finalizeMCPService(ctx, mcpService); err != nil {
				return ctrl.Result{}, err
			}

			controllerutil.RemoveFinalizer(mcpService, mcpServiceFinalizer)
			if err := r.Update(ctx, mcpService); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{}, nil
	}

	// Add finalizer for this CR
	if !controllerutil.ContainsFinalizer(mcpService, mcpServiceFinalizer) {
		controllerutil.AddFinalizer(mcpService, mcpServiceFinalizer)
		if err := r.Update(ctx, mcpService); err != nil {
			return ctrl.Result{}, err
		}
	}

	// Tenancy labels gate everything else. A service without a valid
	// identity is terminally failed and never requeued.
	if err := labels.FromLabels(mcpService.Labels).Validate(); err != nil {
		ctxLogger.Info("MCPService has invalid tenancy labels", "error", err.Error())
		return ctrl.Result{}, r.markFailed(ctx, mcpService,
			mcpv1alpha1.ConditionInvalidLabels, "MissingTenancyLabels", err.Error())
	}

	image, err := resolveImage(mcpService, r.Arch)
	if err != nil {
		var noMatch *errNoMatchingPackage
		if errors.As(err, &noMatch) {
			ctxLogger.Info("No package matches the cluster architecture", "arch", r.Arch)
			return ctrl.Result{}, r.markFailed(ctx, mcpService,
				mcpv1alpha1.ConditionArchitectureMismatch, "NoMatchingPackage", err.Error())
		}
		ctxLogger.Error(err, "Failed to resolve container image")
		return ctrl.Result{}, err
	}

	secretKeys, err := r.workspaceSecretKeys(ctx, mcpService.Namespace)
	if err != nil {
		ctxLogger.Error(err, "Failed to read workspace secret")
		return ctrl.Result{}, err
	}

	// Ensure the Deployment exists and matches the spec
	result, err := r.ensureDeployment(ctx, mcpService, image, secretKeys)
	if err != nil || result.Requeue {
		return result, err
	}

	// Ensure the Service exists and matches the spec
	result, err = r.ensureService(ctx, mcpService)
	if err != nil || result.Requeue {
		return result, err
	}

	// Ensure the environment ConfigMap tracks the literal env entries
	if err := r.ensureEnvConfigMap(ctx, mcpService, secretKeys); err != nil {
		ctxLogger.Error(err, "Failed to ensure environment ConfigMap")
		return ctrl.Result{}, err
	}

	// Ensure the routing Ingresses exist and match the spec
	if err := r.ensureIngresses(ctx, mcpService); err != nil {
		ctxLogger.Error(err, "Failed to ensure Ingresses")
		return ctrl.Result{}, err
	}

	// Ensure the HPA exists when concurrency scaling is requested
	if err := r.ensureHPA(ctx, mcpService); err != nil {
		ctxLogger.Error(err, "Failed to ensure HorizontalPodAutoscaler")
		return ctrl.Result{}, err
	}

	// Derive and publish status from the observed Deployment
	if err := r.updateMCPServiceStatus(ctx, mcpService); err != nil {
		if apierrors.IsConflict(err) {
			return ctrl.Result{Requeue: true}, nil
		}
		ctxLogger.Error(err, "Failed to update MCPService status")
		return ctrl.Result{}, err
	}

	return ctrl.Result{}, nil
}

// markFailed records a terminal failure condition and sets the phase to
// Failed. The caller returns nil so the object is not requeued; a later
// edit to the object triggers a fresh reconcile.
func (r *MCPServiceReconciler) markFailed(
	ctx context.Context,
	m *mcpv1alpha1.MCPService,
	conditionType, reason, message string,
) error {
	m.Status.Phase = mcpv1alpha1.MCPServicePhaseFailed
	meta.SetStatusCondition(&m.Status.Conditions, metav1.Condition{
		Type:               conditionType,
		Status:             metav1.ConditionTrue,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: m.Generation,
	})
	meta.SetStatusCondition(&m.Status.Conditions, metav1.Condition{
		Type:               mcpv1alpha1.ConditionAvailable,
		Status:             metav1.ConditionFalse,
		Reason:             reason,
		ObservedGeneration: m.Generation,
	})
	now := metav1.Now()
	m.Status.LastReconcileTime = &now
	return r.Status().Update(ctx, m)
}

// workspaceSecretKeys returns the set of keys present in the workspace
// secret. A missing secret is not an error; it just means no env entry
// can resolve to a secret reference.
func (r *MCPServiceReconciler) workspaceSecretKeys(ctx context.Context, namespace string) (map[string]bool, error) {
	secret := &corev1.Secret{}
	err := r.Get(ctx, types.NamespacedName{Name: WorkspaceSecretName, Namespace: namespace}, secret)
	if apierrors.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", WorkspaceSecretName, err)
	}

	keys := make(map[string]bool, len(secret.Data))
	for k := range secret.Data {
		keys[k] = true
	}
	return keys, nil
}

// ensureDeployment creates the Deployment if it is absent and rewrites
// its spec when the managed fields drift.
func (r *MCPServiceReconciler) ensureDeployment(
	ctx context.Context,
	m *mcpv1alpha1.MCPService,
	image *imageRef,
	secretKeys map[string]bool,
) (ctrl.Result, error) {
	ctxLogger := log.FromContext(ctx)

	deployment := &appsv1.Deployment{}
	err := r.Get(ctx, types.NamespacedName{Name: m.Name, Namespace: m.Namespace}, deployment)
	if err != nil && apierrors.IsNotFound(err) {
		dep := deploymentForMCPService(m, image, secretKeys)
		if err := controllerutil.SetControllerReference(m, dep, r.Scheme); err != nil {
			return ctrl.Result{}, err
		}
		ctxLogger.Info("Creating a new Deployment", "Deployment.Namespace", dep.Namespace, "Deployment.Name", dep.Name)
		if err := r.Create(ctx, dep); err != nil {
			ctxLogger.Error(err, "Failed to create new Deployment", "Deployment.Name", dep.Name)
			return ctrl.Result{}, err
		}
		// Deployment created successfully - return and requeue
		return ctrl.Result{Requeue: true}, nil
	} else if err != nil {
		ctxLogger.Error(err, "Failed to get Deployment")
		return ctrl.Result{}, err
	}

	desired := deploymentForMCPService(m, image, secretKeys)
	if !deploymentNeedsUpdate(deployment, desired) {
		return ctrl.Result{}, nil
	}

	// Carry forward the restart marker so control-plane initiated
	// rollouts survive the rewrite.
	if v, ok := deployment.Spec.Template.Annotations[restartedAtAnnotation]; ok {
		if desired.Spec.Template.Annotations == nil {
			desired.Spec.Template.Annotations = map[string]string{}
		}
		desired.Spec.Template.Annotations[restartedAtAnnotation] = v
	}

	deployment.Spec = desired.Spec
	ctxLogger.Info("Updating Deployment", "Deployment.Namespace", deployment.Namespace, "Deployment.Name", deployment.Name)
	if err := r.Update(ctx, deployment); err != nil {
		ctxLogger.Error(err, "Failed to update Deployment", "Deployment.Name", deployment.Name)
		return ctrl.Result{}, err
	}
	// Spec updated - return and requeue
	return ctrl.Result{Requeue: true}, nil
}

// ensureService creates the Service if it is absent and rewrites its
// ports when they drift.
func (r *MCPServiceReconciler) ensureService(ctx context.Context, m *mcpv1alpha1.MCPService) (ctrl.Result, error) {
	ctxLogger := log.FromContext(ctx)

	service := &corev1.Service{}
	err := r.Get(ctx, types.NamespacedName{Name: serviceName(m.Name), Namespace: m.Namespace}, service)
	if err != nil && apierrors.IsNotFound(err) {
		svc := serviceForMCPService(m)
		if err := controllerutil.SetControllerReference(m, svc, r.Scheme); err != nil {
			return ctrl.Result{}, err
		}
		ctxLogger.Info("Creating a new Service", "Service.Namespace", svc.Namespace, "Service.Name", svc.Name)
		if err := r.Create(ctx, svc); err != nil {
			ctxLogger.Error(err, "Failed to create new Service", "Service.Name", svc.Name)
			return ctrl.Result{}, err
		}
		// Service created successfully - return and requeue
		return ctrl.Result{Requeue: true}, nil
	} else if err != nil {
		ctxLogger.Error(err, "Failed to get Service")
		return ctrl.Result{}, err
	}

	desired := serviceForMCPService(m)
	if equality.Semantic.DeepEqual(service.Spec.Ports, desired.Spec.Ports) &&
		equality.Semantic.DeepEqual(service.Spec.Selector, desired.Spec.Selector) {
		return ctrl.Result{}, nil
	}

	service.Spec.Ports = desired.Spec.Ports
	service.Spec.Selector = desired.Spec.Selector
	ctxLogger.Info("Updating Service", "Service.Namespace", service.Namespace, "Service.Name", service.Name)
	if err := r.Update(ctx, service); err != nil {
		ctxLogger.Error(err, "Failed to update Service", "Service.Name", service.Name)
		return ctrl.Result{}, err
	}
	return ctrl.Result{Requeue: true}, nil
}

// ensureEnvConfigMap keeps the {name}-env ConfigMap in sync with the
// literal environment entries. When no literal entries remain the
// ConfigMap is deleted.
func (r *MCPServiceReconciler) ensureEnvConfigMap(
	ctx context.Context,
	m *mcpv1alpha1.MCPService,
	secretKeys map[string]bool,
) error {
	ctxLogger := log.FromContext(ctx)

	desired := configMapForMCPService(m, secretKeys)
	current := &corev1.ConfigMap{}
	err := r.Get(ctx, types.NamespacedName{Name: envConfigMapName(m.Name), Namespace: m.Namespace}, current)

	if apierrors.IsNotFound(err) {
		if desired == nil {
			return nil
		}
		if err := controllerutil.SetControllerReference(m, desired, r.Scheme); err != nil {
			return err
		}
		ctxLogger.Info("Creating environment ConfigMap", "ConfigMap.Name", desired.Name)
		return r.Create(ctx, desired)
	} else if err != nil {
		return fmt.Errorf("failed to get ConfigMap %s: %w", envConfigMapName(m.Name), err)
	}

	if desired == nil {
		ctxLogger.Info("Deleting environment ConfigMap", "ConfigMap.Name", current.Name)
		if err := r.Delete(ctx, current); err != nil && !apierrors.IsNotFound(err) {
			return err
		}
		return nil
	}

	if equality.Semantic.DeepEqual(current.Data, desired.Data) {
		return nil
	}
	current.Data = desired.Data
	ctxLogger.Info("Updating environment ConfigMap", "ConfigMap.Name", current.Name)
	return r.Update(ctx, current)
}

// ensureIngresses keeps the mcp and health Ingresses in sync with the
// routing configuration.
func (r *MCPServiceReconciler) ensureIngresses(ctx context.Context, m *mcpv1alpha1.MCPService) error {
	ctxLogger := log.FromContext(ctx)

	for _, desired := range ingressesForMCPService(m, r.PlatformDomain) {
		current := &networkingv1.Ingress{}
		err := r.Get(ctx, types.NamespacedName{Name: desired.Name, Namespace: desired.Namespace}, current)

		if apierrors.IsNotFound(err) {
			if err := controllerutil.SetControllerReference(m, desired, r.Scheme); err != nil {
				return err
			}
			ctxLogger.Info("Creating Ingress", "Ingress.Name", desired.Name)
			if err := r.Create(ctx, desired); err != nil {
				return fmt.Errorf("failed to create Ingress %s: %w", desired.Name, err)
			}
			continue
		} else if err != nil {
			return fmt.Errorf("failed to get Ingress %s: %w", desired.Name, err)
		}

		if equality.Semantic.DeepEqual(current.Spec.Rules, desired.Spec.Rules) &&
			current.Annotations[rewriteTargetAnnotation] == desired.Annotations[rewriteTargetAnnotation] {
			continue
		}
		current.Spec.Rules = desired.Spec.Rules
		if current.Annotations == nil {
			current.Annotations = map[string]string{}
		}
		current.Annotations[rewriteTargetAnnotation] = desired.Annotations[rewriteTargetAnnotation]
		ctxLogger.Info("Updating Ingress", "Ingress.Name", current.Name)
		if err := r.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update Ingress %s: %w", current.Name, err)
		}
	}
	return nil
}

// ensureHPA keeps the HorizontalPodAutoscaler in sync with the scaling
// configuration. When concurrency scaling is not requested, or the
// service is scaled to zero, any existing HPA is deleted.
func (r *MCPServiceReconciler) ensureHPA(ctx context.Context, m *mcpv1alpha1.MCPService) error {
	ctxLogger := log.FromContext(ctx)

	desired := hpaForMCPService(m)
	current := &autoscalingv2.HorizontalPodAutoscaler{}
	err := r.Get(ctx, types.NamespacedName{Name: m.Name, Namespace: m.Namespace}, current)

	if apierrors.IsNotFound(err) {
		if desired == nil {
			return nil
		}
		if err := controllerutil.SetControllerReference(m, desired, r.Scheme); err != nil {
			return err
		}
		ctxLogger.Info("Creating HorizontalPodAutoscaler", "HPA.Name", desired.Name)
		return r.Create(ctx, desired)
	} else if err != nil {
		return fmt.Errorf("failed to get HorizontalPodAutoscaler %s: %w", m.Name, err)
	}

	if desired == nil {
		ctxLogger.Info("Deleting HorizontalPodAutoscaler", "HPA.Name", current.Name)
		if err := r.Delete(ctx, current); err != nil && !apierrors.IsNotFound(err) {
			return err
		}
		return nil
	}

	if equality.Semantic.DeepEqual(current.Spec, desired.Spec) {
		return nil
	}
	current.Spec = desired.Spec
	ctxLogger.Info("Updating HorizontalPodAutoscaler", "HPA.Name", current.Name)
	return r.Update(ctx, current)
}

// updateMCPServiceStatus derives the phase and conditions from the
// observed Deployment and writes the status subresource only when the
// derived state differs from what is already recorded.
func (r *MCPServiceReconciler) updateMCPServiceStatus(ctx context.Context, m *mcpv1alpha1.MCPService) error {
	deployment := &appsv1.Deployment{}
	err := r.Get(ctx, types.NamespacedName{Name: m.Name, Namespace: m.Namespace}, deployment)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return r.writeStatusIfChanged(ctx, m, mcpv1alpha1.MCPServicePhasePending, nil, "WorkloadMissing")
		}
		return err
	}

	observed := &mcpv1alpha1.DeploymentStatus{
		Ready:         deployment.Status.ReadyReplicas >= readinessFloor(m) && deploymentAvailable(deployment),
		Replicas:      deployment.Status.Replicas,
		ReadyReplicas: deployment.Status.ReadyReplicas,
	}

	phase := mcpv1alpha1.MCPServicePhasePending
	reason := "WaitingForReplicas"
	switch {
	case deploymentFailed(deployment):
		phase = mcpv1alpha1.MCPServicePhaseFailed
		reason = "ReplicaFailure"
	case desiredReplicas(m) == 0:
		// A workload scaled to zero has no ready replicas and never
		// will until it is scaled back up. It is not running.
		observed.Ready = false
		reason = "ScaledToZero"
	case observed.Ready:
		phase = mcpv1alpha1.MCPServicePhaseRunning
		reason = "MinimumReplicasAvailable"
	}

	return r.writeStatusIfChanged(ctx, m, phase, observed, reason)
}

// readinessFloor is the ready-replica count below which the service is
// not considered running. At least one replica must be ready even when
// autoscaling allows scale-to-zero.
func readinessFloor(m *mcpv1alpha1.MCPService) int32 {
	if m.Spec.Scaling != nil && m.Spec.Scaling.MinReplicas > 1 {
		return m.Spec.Scaling.MinReplicas
	}
	return 1
}

// deploymentAvailable reports whether the Deployment's Available
// condition is true.
func deploymentAvailable(deployment *appsv1.Deployment) bool {
	for _, cond := range deployment.Status.Conditions {
		if cond.Type == appsv1.DeploymentAvailable && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// writeStatusIfChanged issues a status update only when the derived
// fields differ from the recorded ones. lastReconcileTime is refreshed
// as part of any write but never forces one by itself.
func (r *MCPServiceReconciler) writeStatusIfChanged(
	ctx context.Context,
	m *mcpv1alpha1.MCPService,
	phase mcpv1alpha1.MCPServicePhase,
	observed *mcpv1alpha1.DeploymentStatus,
	reason string,
) error {
	endpoint := serviceEndpointURL(m)

	availableStatus := metav1.ConditionFalse
	if phase == mcpv1alpha1.MCPServicePhaseRunning {
		availableStatus = metav1.ConditionTrue
	}

	unchanged := m.Status.Phase == phase &&
		m.Status.ServiceEndpoint == endpoint &&
		equality.Semantic.DeepEqual(m.Status.DeploymentStatus, observed) &&
		meta.IsStatusConditionPresentAndEqual(m.Status.Conditions, mcpv1alpha1.ConditionAvailable, availableStatus)
	if unchanged {
		return nil
	}

	m.Status.Phase = phase
	m.Status.DeploymentStatus = observed
	m.Status.ServiceEndpoint = endpoint
	meta.SetStatusCondition(&m.Status.Conditions, metav1.Condition{
		Type:               mcpv1alpha1.ConditionAvailable,
		Status:             availableStatus,
		Reason:             reason,
		ObservedGeneration: m.Generation,
	})
	now := metav1.Now()
	m.Status.LastReconcileTime = &now

	return r.Status().Update(ctx, m)
}

// deploymentFailed reports whether the Deployment carries a true
// ReplicaFailure condition.
func deploymentFailed(deployment *appsv1.Deployment) bool {
	for _, cond := range deployment.Status.Conditions {
		if cond.Type == appsv1.DeploymentReplicaFailure && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// deploymentNeedsUpdate checks whether any managed field of the
// Deployment drifted from the desired spec. Fields written by other
// controllers, such as the restart annotation, are left alone.
func deploymentNeedsUpdate(current, desired *appsv1.Deployment) bool {
	if !equality.Semantic.DeepEqual(current.Spec.Replicas, desired.Spec.Replicas) {
		return true
	}
	if !equality.Semantic.DeepEqual(current.Spec.Selector, desired.Spec.Selector) {
		return true
	}
	if !equality.Semantic.DeepEqual(current.Spec.Template.Labels, desired.Spec.Template.Labels) {
		return true
	}

	if len(current.Spec.Template.Spec.Containers) != len(desired.Spec.Template.Spec.Containers) {
		return true
	}
	for i := range desired.Spec.Template.Spec.Containers {
		cur := current.Spec.Template.Spec.Containers[i]
		des := desired.Spec.Template.Spec.Containers[i]
		if cur.Image != des.Image || cur.ImagePullPolicy != des.ImagePullPolicy {
			return true
		}
		if !equality.Semantic.DeepEqual(cur.Env, des.Env) {
			return true
		}
		if !equality.Semantic.DeepEqual(cur.Resources, des.Resources) {
			return true
		}
		if !equality.Semantic.DeepEqual(cur.Ports, des.Ports) {
			return true
		}
	}
	return false
}

// finalizeMCPService performs the finalizer logic for the MCPService.
// Owned children are garbage collected via owner references; only the
// environment ConfigMap is removed explicitly in case ownership was
// stripped by an out-of-band edit.
func (r *MCPServiceReconciler) finalizeMCPService(ctx context.Context, m *mcpv1alpha1.MCPService) error {
	configMap := &corev1.ConfigMap{}
	name := envConfigMapName(m.Name)
	err := r.Get(ctx, types.NamespacedName{Name: name, Namespace: m.Namespace}, configMap)
	if err == nil {
		if delErr := r.Delete(ctx, configMap); delErr != nil && !apierrors.IsNotFound(delErr) {
			return fmt.Errorf("failed to delete ConfigMap %s: %w", name, delErr)
		}
	} else if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to check ConfigMap %s: %w", name, err)
	}
	return nil
}

// Requeue backoff bounds for failed reconciles.
const (
	requeueBaseDelay = 5 * time.Second
	requeueMaxDelay  = 5 * time.Minute
)

// requeueRateLimiter backs off failed reconciles exponentially per
// object, from 5 seconds up to 5 minutes.
func requeueRateLimiter() workqueue.TypedRateLimiter[reconcile.Request] {
	return workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](requeueBaseDelay, requeueMaxDelay)
}

// SetupWithManager sets up the controller with the Manager.
func (r *MCPServiceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&mcpv1alpha1.MCPService{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&networkingv1.Ingress{}).
		Owns(&autoscalingv2.HorizontalPodAutoscaler{}).
		WithOptions(controller.Options{RateLimiter: requeueRateLimiter()}).
		Complete(r)
}
