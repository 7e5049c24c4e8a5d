package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
)

func TestPullPolicyForImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		image string
		want  corev1.PullPolicy
	}{
		{"semantic version", "ghcr.io/acme/echo:1.2.3", corev1.PullIfNotPresent},
		{"latest", "ghcr.io/acme/echo:latest", corev1.PullAlways},
		{"edge", "echo:edge", corev1.PullAlways},
		{"dev", "echo:dev", corev1.PullAlways},
		{"no tag", "ghcr.io/acme/echo", corev1.PullAlways},
		{"branch style", "echo:main", corev1.PullAlways},
		{"branch dev suffix", "echo:staging-dev", corev1.PullAlways},
		{"digest", "echo@sha256:abc123", corev1.PullIfNotPresent},
		{"registry with port", "localhost:5000/echo:1.0.0", corev1.PullIfNotPresent},
		{"registry with port no tag", "localhost:5000/echo", corev1.PullAlways},
		{"numeric suffix tag", "echo:v2-rc1", corev1.PullIfNotPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pullPolicyForImage(tt.image))
		})
	}
}

func TestRuntimeBaseImage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mcpb-python:3.14", runtimeBaseImage("python:3.14", ""))
	assert.Equal(t, "mcpb-node:22", runtimeBaseImage("node:22", ""))
	assert.Equal(t, "mcpb-binary:latest", runtimeBaseImage("binary", ""))
	assert.Equal(t, "registry.example.com/mcpb-python:3.14", runtimeBaseImage("python:3.14", "registry.example.com"))
	assert.Equal(t, "registry.example.com/mcpb-python:3.14", runtimeBaseImage("python:3.14", "registry.example.com/"))
}

func TestIsRuntimeTag(t *testing.T) {
	t.Parallel()

	assert.True(t, isRuntimeTag("python:3.14"))
	assert.True(t, isRuntimeTag("node:22"))
	assert.True(t, isRuntimeTag("supergateway-python:3.12"))
	assert.True(t, isRuntimeTag("binary"))
	assert.True(t, isRuntimeTag("adapter-legacy"))
	assert.False(t, isRuntimeTag(""))
	assert.False(t, isRuntimeTag("python"))
	assert.False(t, isRuntimeTag("ruby:3.3"))
}

func TestSelectPackage(t *testing.T) {
	t.Parallel()

	packages := []mcpv1alpha1.Package{
		{RegistryType: "mcpb", Identifier: "https://bundles.example.com/echo-linux-arm64.mcpb"},
		{RegistryType: "mcpb", Identifier: "https://bundles.example.com/echo-linux-amd64.mcpb"},
	}

	pkg, ok := selectPackage(packages, "amd64")
	require.True(t, ok)
	assert.Contains(t, pkg.Identifier, "linux-amd64")

	pkg, ok = selectPackage(packages, "arm64")
	require.True(t, ok)
	assert.Contains(t, pkg.Identifier, "linux-arm64")

	_, ok = selectPackage(packages, "s390x")
	assert.False(t, ok)

	// OCI images are multi-arch and match any architecture.
	oci := []mcpv1alpha1.Package{{RegistryType: "oci", Identifier: "ghcr.io/acme/echo", Version: "1.0.0"}}
	pkg, ok = selectPackage(oci, "s390x")
	require.True(t, ok)
	assert.Equal(t, "ghcr.io/acme/echo", pkg.Identifier)
}

func TestResolveImageRuntimeBundle(t *testing.T) {
	t.Parallel()

	m := createTestMCPService("bundled", "ws-acme")
	m.Spec.Container.Image = ""
	m.Spec.Runtime = "python:3.14"
	m.Spec.Packages = []mcpv1alpha1.Package{
		{
			RegistryType: "mcpb",
			Identifier:   "https://bundles.example.com/bundled-linux-amd64.mcpb",
			SHA256:       "deadbeef",
		},
	}

	ref, err := resolveImage(m, "amd64")
	require.NoError(t, err)
	assert.Equal(t, "mcpb-python:3.14", ref.Image)
	require.Len(t, ref.BundleEnv, 2)
	assert.Equal(t, bundleURLEnvVar, ref.BundleEnv[0].Name)
	assert.Equal(t, "https://bundles.example.com/bundled-linux-amd64.mcpb", ref.BundleEnv[0].Value)
	assert.Equal(t, bundleSHA256EnvVar, ref.BundleEnv[1].Name)
	assert.Equal(t, "deadbeef", ref.BundleEnv[1].Value)
}

func TestResolveImageMissingHashSkipsEnv(t *testing.T) {
	t.Parallel()

	m := createTestMCPService("bundled", "ws-acme")
	m.Spec.Container.Image = ""
	m.Spec.Runtime = "python:3.14"
	m.Spec.Packages = []mcpv1alpha1.Package{
		{RegistryType: "mcpb", Identifier: "https://bundles.example.com/bundled-linux-amd64.mcpb"},
	}

	ref, err := resolveImage(m, "amd64")
	require.NoError(t, err)
	require.Len(t, ref.BundleEnv, 1)
	assert.Equal(t, bundleURLEnvVar, ref.BundleEnv[0].Name)
}

func TestResolveImageOCIPackage(t *testing.T) {
	t.Parallel()

	m := createTestMCPService("echo", "ws-acme")
	m.Spec.Container.Image = ""
	m.Spec.Packages = []mcpv1alpha1.Package{
		{RegistryType: "oci", Identifier: "ghcr.io/acme/echo", Version: "1.0.0"},
	}

	ref, err := resolveImage(m, "arm64")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/acme/echo:1.0.0", ref.Image)
	assert.Equal(t, corev1.PullIfNotPresent, ref.PullPolicy)
	assert.Empty(t, ref.BundleEnv)
}

func TestResolveImageArchitectureMismatch(t *testing.T) {
	t.Parallel()

	m := createTestMCPService("bundled", "ws-acme")
	m.Spec.Container.Image = ""
	m.Spec.Runtime = "python:3.14"
	m.Spec.Packages = []mcpv1alpha1.Package{
		{RegistryType: "mcpb", Identifier: "https://bundles.example.com/bundled-linux-arm64.mcpb"},
	}

	_, err := resolveImage(m, "amd64")
	require.Error(t, err)
	var noMatch *errNoMatchingPackage
	assert.ErrorAs(t, err, &noMatch)
}

func TestResolveImagePlainContainer(t *testing.T) {
	t.Parallel()

	m := createTestMCPService("echo", "ws-acme")

	ref, err := resolveImage(m, "amd64")
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/acme/echo:1.2.3", ref.Image)

	m.Spec.Container.Image = ""
	_, err = resolveImage(m, "amd64")
	assert.Error(t, err)
}
