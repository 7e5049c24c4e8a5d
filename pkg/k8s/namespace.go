package k8s

import (
	"fmt"
	"os"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
)

const (
	// defaultNamespace is the fallback when no discovery method succeeds
	defaultNamespace = "default"
	// defaultServiceAccountPath is where the kubelet mounts the pod's namespace
	defaultServiceAccountPath = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
	// defaultPodNamespaceEnv names the downward-API namespace variable
	defaultPodNamespaceEnv = "POD_NAMESPACE"
)

// GetCurrentNamespace determines the namespace the process runs in. It
// tries the service account mount, then the POD_NAMESPACE variable,
// then the current kubeconfig context, and finally falls back to
// "default".
func GetCurrentNamespace() string {
	if ns, err := getNamespaceFromServiceAccountPath(defaultServiceAccountPath); err == nil {
		return ns
	}

	if ns, err := validateNamespaceValue(os.Getenv(defaultPodNamespaceEnv), defaultPodNamespaceEnv); err == nil {
		return ns
	}

	if ns, err := extractNamespaceFromKubeconfig(loadKubeconfig()); err == nil {
		return ns
	}

	return defaultNamespace
}

func getNamespaceFromServiceAccountPath(path string) (string, error) {
	//nolint:gosec // G304: the path is a package constant outside tests
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read namespace file: %w", err)
	}
	return parseNamespaceFromFile(data)
}

// parseNamespaceFromFile trims trailing newlines only. The kubelet
// writes the file without them; anything else was edited by hand and
// internal whitespace is preserved as-is.
func parseNamespaceFromFile(data []byte) (string, error) {
	ns := strings.TrimRight(string(data), "\n\r")
	if ns == "" {
		return "", fmt.Errorf("namespace file is empty")
	}
	return ns, nil
}

func validateNamespaceValue(ns, source string) (string, error) {
	if ns == "" {
		return "", fmt.Errorf("%s environment variable not set", source)
	}
	return ns, nil
}

func loadKubeconfig() clientcmd.ClientConfig {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	configOverrides := &clientcmd.ConfigOverrides{}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, configOverrides)
}

// extractNamespaceFromKubeconfig pulls the namespace out of the current
// kubeconfig context.
func extractNamespaceFromKubeconfig(kubeConfig clientcmd.ClientConfig) (string, error) {
	rawConfig, err := kubeConfig.RawConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	currentContext := rawConfig.CurrentContext
	if currentContext == "" {
		return "", fmt.Errorf("no current context set in kubeconfig")
	}

	contextConfig, exists := rawConfig.Contexts[currentContext]
	if !exists {
		return "", fmt.Errorf("current context %q not found in kubeconfig", currentContext)
	}

	ns := strings.TrimSpace(contextConfig.Namespace)
	if ns == "" {
		return "", fmt.Errorf("no namespace set in current context %q", currentContext)
	}

	return ns, nil
}
