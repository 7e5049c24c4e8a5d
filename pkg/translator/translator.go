// Package translator converts MCP registry server.json documents into
// MCPService objects. It is a pure package: architecture selection, URL
// validation, and tenancy label injection all happen here so the HTTP
// layer stays thin and the logic stays unit-testable.
package translator

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	upstream "github.com/modelcontextprotocol/registry/pkg/api/v0"
	"github.com/modelcontextprotocol/registry/pkg/model"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

// Machine-readable error codes surfaced to API clients on 422 responses.
const (
	// CodeInvalidServerDefinition marks schema or content violations in
	// the submitted document
	CodeInvalidServerDefinition = "INVALID_SERVER_DEFINITION"

	// CodeArchitectureMismatch marks documents with no package usable on
	// the cluster architecture
	CodeArchitectureMismatch = "ARCHITECTURE_MISMATCH"

	// CodeInvalidMCPBURL marks mcpb packages with a malformed bundle URL
	CodeInvalidMCPBURL = "INVALID_MCPB_URL"
)

// registryTypeMCPB is the registry type for mcpb bundle packages. The
// upstream model defines a constant for oci but not for mcpb.
const registryTypeMCPB = "mcpb"

// runtimeMetaNamespace is the _meta extension namespace the platform
// reads the runtime selection from. All other namespaces are ignored.
const runtimeMetaNamespace = "dev.nimbletools.mcp/v1"

// platformMeta is the payload of the platform's _meta extension.
type platformMeta struct {
	Runtime string `json:"runtime"`
}

// documentExtras shadows the fields of a server.json document that the
// typed upstream structs do not expose: the per-package runtime hint and
// bundle hash, and the _meta extension map. Entries are positional and
// line up with ServerJSON.Packages.
type documentExtras struct {
	Packages []packageExtras            `json:"packages"`
	Meta     map[string]json.RawMessage `json:"_meta"`
}

type packageExtras struct {
	RuntimeHint string `json:"runtimeHint"`
	FileSHA256  string `json:"fileSha256"`
}

// Translate converts a server.json document into an MCPService stamped
// with the given tenancy identity. arch is the cluster node architecture
// (amd64 or arm64) used for package selection. The returned object has
// no namespace; the caller decides where it is created.
func Translate(doc []byte, id labels.Identity, arch string) (*mcpv1alpha1.MCPService, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	var definition upstream.ServerJSON
	if err := json.Unmarshal(doc, &definition); err != nil {
		return nil, errors.NewInvalidInputError("server definition is not valid JSON", err).
			WithCode(CodeInvalidServerDefinition)
	}
	var extras documentExtras
	if err := json.Unmarshal(doc, &extras); err != nil {
		return nil, errors.NewInvalidInputError("server definition is not valid JSON", err).
			WithCode(CodeInvalidServerDefinition)
	}

	serverName, err := serverNameFromDefinition(definition.Name)
	if err != nil {
		return nil, err
	}

	selected, ok := selectPackageIndex(definition.Packages, arch)
	if !ok {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("no package matches cluster architecture %q", arch), nil).
			WithCode(CodeArchitectureMismatch)
	}
	pkg := definition.Packages[selected]

	if pkg.RegistryType == registryTypeMCPB {
		if err := validateBundleURL(pkg.Identifier); err != nil {
			return nil, err
		}
	}

	runtime, err := detectRuntime(extras, selected, pkg.RegistryType)
	if err != nil {
		return nil, err
	}

	m := &mcpv1alpha1.MCPService{
		ObjectMeta: metav1.ObjectMeta{
			Name:        serverName,
			Labels:      labels.ForService(id, serverName),
			Annotations: annotationsFromDefinition(&definition),
		},
		Spec: mcpv1alpha1.MCPServiceSpec{
			Runtime:              runtime,
			Packages:             convertPackages(definition.Packages, extras.Packages),
			EnvironmentVariables: convertEnvironmentVariables(pkg.EnvironmentVariables),
			Deployment: mcpv1alpha1.DeploymentConfig{
				Protocol: "http",
			},
		},
	}
	return m, nil
}

// serverNameFromDefinition derives the cluster resource name from the
// document's reverse-DNS name, e.g. "ai.nimbletools/echo" yields "echo".
// The simple name doubles as a DNS label in child resource names, so it
// must be one.
func serverNameFromDefinition(name string) (string, error) {
	simple := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		simple = name[idx+1:]
	}
	if errs := validation.IsDNS1123Label(simple); len(errs) > 0 {
		return "", errors.NewInvalidInputError(
			fmt.Sprintf("server name %q is not a valid DNS label: %s", simple, strings.Join(errs, "; ")), nil).
			WithCode(CodeInvalidServerDefinition)
	}
	return simple, nil
}

// selectPackageIndex returns the index of the first package usable on
// the given architecture. mcpb bundles must carry a linux-{arch} marker
// in their URL; oci images are architecture-agnostic. Unknown registry
// types never match.
func selectPackageIndex(packages []model.Package, arch string) (int, bool) {
	marker := fmt.Sprintf("linux-%s", arch)
	for i, pkg := range packages {
		switch pkg.RegistryType {
		case registryTypeMCPB:
			if strings.Contains(pkg.Identifier, marker) {
				return i, true
			}
		case model.RegistryTypeOCI:
			return i, true
		}
	}
	return 0, false
}

// validateBundleURL checks that an mcpb identifier is an absolute HTTP
// URL ending in .mcpb with an explicit architecture marker. Bundles
// without a marker cannot be matched to a node architecture and are
// rejected outright.
func validateBundleURL(identifier string) error {
	parsed, err := url.Parse(identifier)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.NewInvalidInputError(
			fmt.Sprintf("mcpb identifier %q is not an absolute HTTP URL", identifier), nil).
			WithCode(CodeInvalidMCPBURL)
	}
	if !strings.HasSuffix(parsed.Path, ".mcpb") {
		return errors.NewInvalidInputError(
			fmt.Sprintf("mcpb identifier %q does not end with .mcpb", identifier), nil).
			WithCode(CodeInvalidMCPBURL)
	}
	if !strings.Contains(parsed.Path, "linux-amd64") && !strings.Contains(parsed.Path, "linux-arm64") {
		return errors.NewInvalidInputError(
			fmt.Sprintf("mcpb identifier %q carries no architecture marker", identifier), nil).
			WithCode(CodeInvalidMCPBURL)
	}
	return nil
}

// detectRuntime resolves the runtime base image tag. The platform's
// _meta extension wins; an mcpb package's runtimeHint is the fallback.
// oci packages run as-is and get no runtime.
func detectRuntime(extras documentExtras, selected int, registryType string) (string, error) {
	runtime := ""
	if raw, ok := extras.Meta[runtimeMetaNamespace]; ok {
		var meta platformMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return "", errors.NewInvalidInputError(
				fmt.Sprintf("malformed %s extension", runtimeMetaNamespace), err).
				WithCode(CodeInvalidServerDefinition)
		}
		runtime = meta.Runtime
	}
	if runtime == "" && registryType == registryTypeMCPB && selected < len(extras.Packages) {
		runtime = extras.Packages[selected].RuntimeHint
	}
	if runtime == "" {
		return "", nil
	}
	if !validRuntimePattern.MatchString(runtime) {
		return "", errors.NewInvalidInputError(
			fmt.Sprintf("unsupported runtime %q", runtime), nil).
			WithCode(CodeInvalidServerDefinition)
	}
	return runtime, nil
}

func annotationsFromDefinition(definition *upstream.ServerJSON) map[string]string {
	annotations := map[string]string{}
	if definition.Description != "" {
		annotations[labels.AnnotationDescription] = definition.Description
	}
	if definition.Version != "" {
		annotations[labels.AnnotationVersion] = definition.Version
	}
	if len(annotations) == 0 {
		return nil
	}
	return annotations
}

// convertPackages carries over the package fields the platform
// understands; everything else in the document is dropped here.
func convertPackages(packages []model.Package, extras []packageExtras) []mcpv1alpha1.Package {
	converted := make([]mcpv1alpha1.Package, 0, len(packages))
	for i, pkg := range packages {
		out := mcpv1alpha1.Package{
			RegistryType:         pkg.RegistryType,
			Identifier:           pkg.Identifier,
			Version:              pkg.Version,
			EnvironmentVariables: convertEnvironmentVariables(pkg.EnvironmentVariables),
		}
		if i < len(extras) {
			out.SHA256 = extras[i].FileSHA256
		}
		if pkg.Transport.Type != "" || pkg.Transport.URL != "" {
			out.Transport = &mcpv1alpha1.PackageTransport{
				Type: pkg.Transport.Type,
				URL:  pkg.Transport.URL,
			}
		}
		converted = append(converted, out)
	}
	return converted
}

func convertEnvironmentVariables(envVars []model.KeyValueInput) []mcpv1alpha1.EnvironmentVariable {
	if len(envVars) == 0 {
		return nil
	}
	converted := make([]mcpv1alpha1.EnvironmentVariable, 0, len(envVars))
	for _, envVar := range envVars {
		converted = append(converted, mcpv1alpha1.EnvironmentVariable{
			Name:        envVar.Name,
			Description: envVar.Description,
			IsSecret:    envVar.IsSecret,
			IsRequired:  envVar.IsRequired,
		})
	}
	return converted
}
