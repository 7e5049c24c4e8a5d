package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

const (
	testWorkspaceID    = "0b5e3f0f-8c2a-4f6e-9d1a-3a9c1e6f4b2d"
	testUserID         = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testOrganizationID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
)

func createTestScheme() *runtime.Scheme {
	testScheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(testScheme); err != nil {
		panic(err)
	}
	if err := mcpv1alpha1.AddToScheme(testScheme); err != nil {
		panic(err)
	}
	return testScheme
}

func testIdentityLabels() map[string]string {
	return map[string]string{
		labels.LabelWorkspaceID:    testWorkspaceID,
		labels.LabelWorkspaceName:  "acme-dev",
		labels.LabelUserID:         testUserID,
		labels.LabelOrganizationID: testOrganizationID,
	}
}

func createTestMCPService(name, namespace string) *mcpv1alpha1.MCPService {
	return &mcpv1alpha1.MCPService{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    testIdentityLabels(),
		},
		Spec: mcpv1alpha1.MCPServiceSpec{
			Container: mcpv1alpha1.ContainerSpec{
				Image: "ghcr.io/acme/echo:1.2.3",
			},
		},
	}
}

type reconcileTestContext struct {
	mcpService *mcpv1alpha1.MCPService
	client     client.Client
	reconciler *MCPServiceReconciler
	t          *testing.T
}

func setupReconcileTest(t *testing.T, mcpService *mcpv1alpha1.MCPService, extra ...client.Object) *reconcileTestContext {
	t.Helper()
	testScheme := createTestScheme()
	objects := append([]client.Object{mcpService}, extra...)
	fakeClient := fake.NewClientBuilder().
		WithScheme(testScheme).
		WithObjects(objects...).
		WithStatusSubresource(&mcpv1alpha1.MCPService{}).
		Build()

	return &reconcileTestContext{
		mcpService: mcpService,
		client:     fakeClient,
		reconciler: &MCPServiceReconciler{
			Client:         fakeClient,
			Scheme:         testScheme,
			Arch:           "amd64",
			PlatformDomain: "mcp.example.com",
		},
		t: t,
	}
}

func (tc *reconcileTestContext) request() ctrl.Request {
	return ctrl.Request{NamespacedName: types.NamespacedName{
		Name:      tc.mcpService.Name,
		Namespace: tc.mcpService.Namespace,
	}}
}

// reconcileUntilSettled drives Reconcile until it stops requeueing, the
// way the manager would after a burst of child creations.
func (tc *reconcileTestContext) reconcileUntilSettled() {
	tc.t.Helper()
	for i := 0; i < 10; i++ {
		result, err := tc.reconciler.Reconcile(context.TODO(), tc.request())
		require.NoError(tc.t, err)
		if !result.Requeue && result.RequeueAfter == 0 {
			return
		}
	}
	tc.t.Fatal("reconcile did not settle after 10 passes")
}

func (tc *reconcileTestContext) getMCPService() *mcpv1alpha1.MCPService {
	tc.t.Helper()
	m := &mcpv1alpha1.MCPService{}
	require.NoError(tc.t, tc.client.Get(context.TODO(), tc.request().NamespacedName, m))
	return m
}

func TestReconcileCreatesChildren(t *testing.T) {
	t.Parallel()

	tc := setupReconcileTest(t, createTestMCPService("echo", "ws-acme"))
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	require.Len(t, deployment.Spec.Template.Spec.Containers, 1)
	assert.Equal(t, "ghcr.io/acme/echo:1.2.3", deployment.Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, corev1.PullIfNotPresent, deployment.Spec.Template.Spec.Containers[0].ImagePullPolicy)
	assert.Equal(t, "echo", deployment.Labels[labels.LabelServer])
	require.Len(t, deployment.OwnerReferences, 1)
	assert.Equal(t, "MCPService", deployment.OwnerReferences[0].Kind)

	service := &corev1.Service{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "mcp-echo", Namespace: "ws-acme"}, service))
	require.Len(t, service.Spec.Ports, 1)
	assert.Equal(t, int32(8000), service.Spec.Ports[0].Port)

	for _, ingressName := range []string{"mcp-echo-mcp", "mcp-echo-health"} {
		ingress := &networkingv1.Ingress{}
		require.NoError(t, tc.client.Get(context.TODO(),
			types.NamespacedName{Name: ingressName, Namespace: "ws-acme"}, ingress))
		require.Len(t, ingress.Spec.Rules, 1)
		assert.Equal(t, "mcp.example.com", ingress.Spec.Rules[0].Host)
	}

	// No literal env and no concurrency scaling: neither of the
	// optional children should exist.
	configMap := &corev1.ConfigMap{}
	err := tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo-env", Namespace: "ws-acme"}, configMap)
	assert.True(t, apierrors.IsNotFound(err))

	hpa := &autoscalingv2.HorizontalPodAutoscaler{}
	err = tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, hpa)
	assert.True(t, apierrors.IsNotFound(err))

	updated := tc.getMCPService()
	assert.Contains(t, updated.Finalizers, mcpServiceFinalizer)
	assert.Equal(t, mcpv1alpha1.MCPServicePhasePending, updated.Status.Phase)
	assert.Equal(t, "http://mcp-echo.ws-acme.svc.cluster.local:8000", updated.Status.ServiceEndpoint)
	require.NotNil(t, updated.Status.LastReconcileTime)
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	tc := setupReconcileTest(t, createTestMCPService("echo", "ws-acme"))
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	firstVersion := deployment.ResourceVersion

	// A second settled pass must not touch the Deployment.
	tc.reconcileUntilSettled()
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	assert.Equal(t, firstVersion, deployment.ResourceVersion)
}

func TestReconcileInvalidLabels(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("echo", "ws-acme")
	mcpService.Labels[labels.LabelWorkspaceID] = "not-a-uuid"
	tc := setupReconcileTest(t, mcpService)

	result, err := tc.reconciler.Reconcile(context.TODO(), tc.request())
	require.NoError(t, err)
	assert.False(t, result.Requeue)

	updated := tc.getMCPService()
	assert.Equal(t, mcpv1alpha1.MCPServicePhaseFailed, updated.Status.Phase)
	assert.True(t, meta.IsStatusConditionTrue(updated.Status.Conditions, mcpv1alpha1.ConditionInvalidLabels))
	assert.True(t, meta.IsStatusConditionFalse(updated.Status.Conditions, mcpv1alpha1.ConditionAvailable))

	// No children should have been created for an invalid service.
	deployment := &appsv1.Deployment{}
	err = tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment)
	assert.Error(t, err)
}

func TestReconcileArchitectureMismatch(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("bundled", "ws-acme")
	mcpService.Spec.Container.Image = ""
	mcpService.Spec.Runtime = "python:3.14"
	mcpService.Spec.Packages = []mcpv1alpha1.Package{
		{
			RegistryType: "mcpb",
			Identifier:   "https://bundles.example.com/bundled-linux-arm64.mcpb",
		},
	}
	tc := setupReconcileTest(t, mcpService)

	result, err := tc.reconciler.Reconcile(context.TODO(), tc.request())
	require.NoError(t, err)
	assert.False(t, result.Requeue)

	updated := tc.getMCPService()
	assert.Equal(t, mcpv1alpha1.MCPServicePhaseFailed, updated.Status.Phase)
	assert.True(t, meta.IsStatusConditionTrue(updated.Status.Conditions, mcpv1alpha1.ConditionArchitectureMismatch))
}

func TestReconcileBundleRuntimeDeployment(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("bundled", "ws-acme")
	mcpService.Spec.Container.Image = ""
	mcpService.Spec.Runtime = "python:3.14"
	mcpService.Spec.Packages = []mcpv1alpha1.Package{
		{
			RegistryType: "mcpb",
			Identifier:   "https://bundles.example.com/bundled-linux-amd64.mcpb",
			SHA256:       "deadbeef",
		},
	}
	tc := setupReconcileTest(t, mcpService)
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "bundled", Namespace: "ws-acme"}, deployment))
	container := deployment.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "mcpb-python:3.14", container.Image)
	assert.Equal(t, corev1.PullIfNotPresent, container.ImagePullPolicy)

	envByName := map[string]string{}
	for _, e := range container.Env {
		envByName[e.Name] = e.Value
	}
	assert.Equal(t, "https://bundles.example.com/bundled-linux-amd64.mcpb", envByName[bundleURLEnvVar])
	assert.Equal(t, "deadbeef", envByName[bundleSHA256EnvVar])
}

func TestReconcileSecretPromotion(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("echo", "ws-acme")
	mcpService.Spec.Environment = map[string]string{
		"API_KEY":   "from-plain-config",
		"LOG_LEVEL": "info",
	}
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      WorkspaceSecretName,
			Namespace: "ws-acme",
		},
		Data: map[string][]byte{"API_KEY": []byte("s3cret")},
	}
	tc := setupReconcileTest(t, mcpService, secret)
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	container := deployment.Spec.Template.Spec.Containers[0]
	require.Len(t, container.Env, 2)

	// API_KEY sorts first and must resolve to the workspace secret.
	apiKey := container.Env[0]
	assert.Equal(t, "API_KEY", apiKey.Name)
	require.NotNil(t, apiKey.ValueFrom)
	require.NotNil(t, apiKey.ValueFrom.SecretKeyRef)
	assert.Equal(t, WorkspaceSecretName, apiKey.ValueFrom.SecretKeyRef.Name)
	assert.Empty(t, apiKey.Value)

	logLevel := container.Env[1]
	assert.Equal(t, "LOG_LEVEL", logLevel.Name)
	require.NotNil(t, logLevel.ValueFrom)
	require.NotNil(t, logLevel.ValueFrom.ConfigMapKeyRef)
	assert.Equal(t, "echo-env", logLevel.ValueFrom.ConfigMapKeyRef.Name)

	// The promoted key must not leak into the ConfigMap.
	configMap := &corev1.ConfigMap{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo-env", Namespace: "ws-acme"}, configMap))
	assert.Equal(t, map[string]string{"LOG_LEVEL": "info"}, configMap.Data)
}

func TestReconcileCreatesHPA(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("scaled", "ws-acme")
	mcpService.Spec.Scaling = &mcpv1alpha1.ScalingConfig{
		MinReplicas:       2,
		MaxReplicas:       8,
		TargetConcurrency: 10,
	}
	tc := setupReconcileTest(t, mcpService)
	tc.reconcileUntilSettled()

	hpa := &autoscalingv2.HorizontalPodAutoscaler{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "scaled", Namespace: "ws-acme"}, hpa))
	require.NotNil(t, hpa.Spec.MinReplicas)
	assert.Equal(t, int32(2), *hpa.Spec.MinReplicas)
	assert.Equal(t, int32(8), hpa.Spec.MaxReplicas)
	require.Len(t, hpa.Spec.Metrics, 1)
	require.NotNil(t, hpa.Spec.Metrics[0].Pods)
	assert.Equal(t, concurrencyMetricName, hpa.Spec.Metrics[0].Pods.Metric.Name)

	// Disabling concurrency scaling removes the HPA on the next pass.
	updated := tc.getMCPService()
	updated.Spec.Scaling = nil
	require.NoError(t, tc.client.Update(context.TODO(), updated))
	tc.reconcileUntilSettled()

	err := tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "scaled", Namespace: "ws-acme"}, hpa)
	assert.Error(t, err)
}

func TestReconcileHealsDriftedDeployment(t *testing.T) {
	t.Parallel()

	tc := setupReconcileTest(t, createTestMCPService("echo", "ws-acme"))
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	deployment.Spec.Template.Spec.Containers[0].Image = "ghcr.io/acme/echo:0.0.1"
	require.NoError(t, tc.client.Update(context.TODO(), deployment))

	tc.reconcileUntilSettled()

	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	assert.Equal(t, "ghcr.io/acme/echo:1.2.3", deployment.Spec.Template.Spec.Containers[0].Image)
}

func TestReconcilePreservesRestartAnnotation(t *testing.T) {
	t.Parallel()

	tc := setupReconcileTest(t, createTestMCPService("echo", "ws-acme"))
	tc.reconcileUntilSettled()

	// Simulate a control-plane restart plus spec drift in one step.
	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	if deployment.Spec.Template.Annotations == nil {
		deployment.Spec.Template.Annotations = map[string]string{}
	}
	deployment.Spec.Template.Annotations[restartedAtAnnotation] = "2026-08-26T10:00:00Z"
	deployment.Spec.Template.Spec.Containers[0].Image = "ghcr.io/acme/echo:0.0.1"
	require.NoError(t, tc.client.Update(context.TODO(), deployment))

	tc.reconcileUntilSettled()

	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	assert.Equal(t, "ghcr.io/acme/echo:1.2.3", deployment.Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, "2026-08-26T10:00:00Z", deployment.Spec.Template.Annotations[restartedAtAnnotation])
}

func TestReconcileStatusRunning(t *testing.T) {
	t.Parallel()

	tc := setupReconcileTest(t, createTestMCPService("echo", "ws-acme"))
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	deployment.Status.Replicas = 1
	deployment.Status.ReadyReplicas = 1
	deployment.Status.Conditions = []appsv1.DeploymentCondition{
		{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue},
	}
	require.NoError(t, tc.client.Status().Update(context.TODO(), deployment))

	tc.reconcileUntilSettled()

	updated := tc.getMCPService()
	assert.Equal(t, mcpv1alpha1.MCPServicePhaseRunning, updated.Status.Phase)
	assert.True(t, meta.IsStatusConditionTrue(updated.Status.Conditions, mcpv1alpha1.ConditionAvailable))
	require.NotNil(t, updated.Status.DeploymentStatus)
	assert.True(t, updated.Status.DeploymentStatus.Ready)
	assert.Equal(t, int32(1), updated.Status.DeploymentStatus.ReadyReplicas)
}

func TestReconcileStatusWithoutAvailableCondition(t *testing.T) {
	t.Parallel()

	tc := setupReconcileTest(t, createTestMCPService("echo", "ws-acme"))
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	deployment.Status.Replicas = 1
	deployment.Status.ReadyReplicas = 1
	require.NoError(t, tc.client.Status().Update(context.TODO(), deployment))

	tc.reconcileUntilSettled()

	updated := tc.getMCPService()
	assert.Equal(t, mcpv1alpha1.MCPServicePhasePending, updated.Status.Phase)
	require.NotNil(t, updated.Status.DeploymentStatus)
	assert.False(t, updated.Status.DeploymentStatus.Ready)
}

func TestReconcileStatusScaledToZero(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("echo", "ws-acme")
	zero := int32(0)
	mcpService.Spec.Replicas = &zero
	tc := setupReconcileTest(t, mcpService)
	tc.reconcileUntilSettled()

	deployment := &appsv1.Deployment{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo", Namespace: "ws-acme"}, deployment))
	deployment.Status.Conditions = []appsv1.DeploymentCondition{
		{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue},
	}
	require.NoError(t, tc.client.Status().Update(context.TODO(), deployment))

	tc.reconcileUntilSettled()

	updated := tc.getMCPService()
	assert.Equal(t, mcpv1alpha1.MCPServicePhasePending, updated.Status.Phase)
	assert.True(t, meta.IsStatusConditionFalse(updated.Status.Conditions, mcpv1alpha1.ConditionAvailable))
	require.NotNil(t, updated.Status.DeploymentStatus)
	assert.False(t, updated.Status.DeploymentStatus.Ready)
}

func TestReconcileFinalizerCleanup(t *testing.T) {
	t.Parallel()

	mcpService := createTestMCPService("echo", "ws-acme")
	mcpService.Spec.Environment = map[string]string{"LOG_LEVEL": "info"}
	tc := setupReconcileTest(t, mcpService)
	tc.reconcileUntilSettled()

	configMap := &corev1.ConfigMap{}
	require.NoError(t, tc.client.Get(context.TODO(),
		types.NamespacedName{Name: "echo-env", Namespace: "ws-acme"}, configMap))

	updated := tc.getMCPService()
	require.NoError(t, tc.client.Delete(context.TODO(), updated))

	// The finalizer holds the object; one more reconcile releases it.
	result, err := tc.reconciler.Reconcile(context.TODO(), tc.request())
	require.NoError(t, err)
	assert.False(t, result.Requeue)

	err = tc.client.Get(context.TODO(), tc.request().NamespacedName, &mcpv1alpha1.MCPService{})
	assert.Error(t, err)
}

func TestRequeueRateLimiterBackoff(t *testing.T) {
	t.Parallel()

	limiter := requeueRateLimiter()
	req := reconcile.Request{NamespacedName: types.NamespacedName{Namespace: "ws-acme", Name: "echo"}}

	assert.Equal(t, 5*time.Second, limiter.When(req))
	assert.Equal(t, 10*time.Second, limiter.When(req))
	assert.Equal(t, 20*time.Second, limiter.When(req))

	for i := 0; i < 20; i++ {
		limiter.When(req)
	}
	assert.Equal(t, 5*time.Minute, limiter.When(req))

	limiter.Forget(req)
	assert.Equal(t, 5*time.Second, limiter.When(req))
}
