package k8s

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// NewClient creates a standard Kubernetes clientset using the default
// config loading: in-cluster first, then the local kubeconfig.
func NewClient() (kubernetes.Interface, *rest.Config, error) {
	config, err := GetConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return clientset, config, nil
}

// NewClientWithConfig creates a standard Kubernetes clientset from the
// provided config.
func NewClientWithConfig(config *rest.Config) (kubernetes.Interface, error) {
	if config == nil {
		return nil, fmt.Errorf("failed to create kubernetes client: config cannot be nil")
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return clientset, nil
}

// NewControllerRuntimeClient creates a controller-runtime client with a
// custom scheme. Use this for working with the MCPService CRD alongside
// standard resources; the scheme must have all required types
// registered before calling.
func NewControllerRuntimeClient(scheme *runtime.Scheme) (client.Client, error) {
	config, err := GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
	}

	return newControllerRuntimeClientWithConfig(config, scheme)
}

func newControllerRuntimeClientWithConfig(config *rest.Config, scheme *runtime.Scheme) (client.Client, error) {
	if scheme == nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: scheme cannot be nil")
	}

	k8sClient, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: %w", err)
	}

	return k8sClient, nil
}

// getConfigFromKubeconfigFile loads a REST config from an explicit
// kubeconfig path. Used by tests.
func getConfigFromKubeconfigFile(path string) (*rest.Config, error) {
	return clientcmd.BuildConfigFromFlags("", path)
}
