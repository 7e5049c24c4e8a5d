package controllers

import (
	"fmt"
	"regexp"
	"strings"

	corev1 "k8s.io/api/core/v1"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
)

// Bundle download parameters injected into runtime base images.
const (
	bundleURLEnvVar    = "BUNDLE_URL"
	bundleSHA256EnvVar = "BUNDLE_SHA256"
)

// runtimeTagPattern matches the closed set of runtime base image tags:
// python:X.Y, node:X, supergateway-python:X.Y, binary, adapter-legacy.
var runtimeTagPattern = regexp.MustCompile(`^(python:\d+\.\d+|node:\d+|supergateway-python:\d+\.\d+|binary|adapter-legacy)$`)

// mutableTagPattern matches tags that are expected to move, such as
// "main" or "staging-dev". Matching tags are always re-pulled.
var mutableTagPattern = regexp.MustCompile(`^[a-z]+(-dev)?$`)

// imageRef is the resolved container image for an MCPService, along
// with the env vars the runtime needs to fetch its bundle.
type imageRef struct {
	Image      string
	PullPolicy corev1.PullPolicy
	BundleEnv  []corev1.EnvVar
}

// errNoMatchingPackage is returned when no package matches the cluster
// architecture; the reconciler surfaces it as an ArchitectureMismatch
// condition.
type errNoMatchingPackage struct {
	arch string
}

func (e *errNoMatchingPackage) Error() string {
	return fmt.Sprintf("no package matches cluster architecture %q", e.arch)
}

// resolveImage computes the container image reference for the service.
//
// When packages are present and a runtime base image is declared, the
// container runs the base image and downloads the bundle at startup;
// otherwise the first architecture-matching package is the image itself.
func resolveImage(m *mcpv1alpha1.MCPService, arch string) (*imageRef, error) {
	if len(m.Spec.Packages) > 0 && isRuntimeTag(m.Spec.Runtime) {
		pkg, ok := selectPackage(m.Spec.Packages, arch)
		if !ok {
			return nil, &errNoMatchingPackage{arch: arch}
		}

		image := runtimeBaseImage(m.Spec.Runtime, m.Spec.Container.Registry)
		env := []corev1.EnvVar{{Name: bundleURLEnvVar, Value: pkg.Identifier}}
		// A missing hash means the runtime skips verification and logs
		// a warning; nothing is emitted here.
		if pkg.SHA256 != "" {
			env = append(env, corev1.EnvVar{Name: bundleSHA256EnvVar, Value: pkg.SHA256})
		}

		return &imageRef{
			Image:      image,
			PullPolicy: pullPolicyForImage(image),
			BundleEnv:  env,
		}, nil
	}

	if len(m.Spec.Packages) > 0 {
		pkg, ok := selectPackage(m.Spec.Packages, arch)
		if !ok {
			return nil, &errNoMatchingPackage{arch: arch}
		}

		image := pkg.Identifier
		if pkg.Version != "" {
			image = fmt.Sprintf("%s:%s", pkg.Identifier, pkg.Version)
		}
		return &imageRef{
			Image:      image,
			PullPolicy: pullPolicyForImage(image),
		}, nil
	}

	// No packages: the image was resolved at translation time.
	if m.Spec.Container.Image == "" {
		return nil, fmt.Errorf("service %q has neither packages nor a container image", m.Name)
	}
	return &imageRef{
		Image:      m.Spec.Container.Image,
		PullPolicy: pullPolicyForImage(m.Spec.Container.Image),
	}, nil
}

// selectPackage returns the first package usable on the given cluster
// architecture. mcpb bundles are architecture-specific and must carry a
// linux-{arch} marker in their URL; oci images are treated as
// architecture-agnostic (multi-arch manifests).
func selectPackage(packages []mcpv1alpha1.Package, arch string) (mcpv1alpha1.Package, bool) {
	marker := fmt.Sprintf("linux-%s", arch)
	for _, pkg := range packages {
		switch pkg.RegistryType {
		case "mcpb":
			if strings.Contains(pkg.Identifier, marker) {
				return pkg, true
			}
		case "oci":
			return pkg, true
		}
	}
	return mcpv1alpha1.Package{}, false
}

// isRuntimeTag reports whether the runtime field names a base image
// from the supported set.
func isRuntimeTag(runtime string) bool {
	return runtime != "" && runtimeTagPattern.MatchString(runtime)
}

// runtimeBaseImage maps a runtime tag to its base image reference,
// e.g. "python:3.14" -> "mcpb-python:3.14".
func runtimeBaseImage(runtime, registry string) string {
	name, version, found := strings.Cut(runtime, ":")
	image := "mcpb-" + name
	if found {
		image = fmt.Sprintf("%s:%s", image, version)
	} else {
		image += ":latest"
	}
	if registry != "" {
		image = fmt.Sprintf("%s/%s", strings.TrimSuffix(registry, "/"), image)
	}
	return image
}

// pullPolicyForImage decides the image pull policy from the tag. Mutable
// tags (latest, edge, dev, absent, or short branch-style tags) are
// always re-pulled; semantic versions and content-addressed references
// are pulled once.
func pullPolicyForImage(image string) corev1.PullPolicy {
	tag := imageTag(image)
	switch tag {
	case "", "latest", "edge", "dev":
		return corev1.PullAlways
	}
	if mutableTagPattern.MatchString(tag) {
		return corev1.PullAlways
	}
	return corev1.PullIfNotPresent
}

// imageTag extracts the tag portion of an image reference, tolerating
// registry host:port prefixes. Digest references return the digest.
func imageTag(image string) string {
	// Only the last path segment can carry a tag or digest.
	lastSlash := strings.LastIndex(image, "/")
	segment := image[lastSlash+1:]

	if _, digest, found := strings.Cut(segment, "@"); found {
		return digest
	}
	if _, tag, found := strings.Cut(segment, ":"); found {
		return tag
	}
	return ""
}
