package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MCPServiceSpec defines the desired state of MCPService
type MCPServiceSpec struct {
	// Container describes the server container. The image reference is
	// derived by the operator from packages and runtime, never supplied
	// directly by users.
	// +optional
	Container ContainerSpec `json:"container,omitempty"`

	// Deployment describes how the server process is exposed
	// +optional
	Deployment DeploymentConfig `json:"deployment,omitempty"`

	// Packages is the ordered list of architecture-specific package
	// descriptors from the server definition
	// +optional
	Packages []Package `json:"packages,omitempty"`

	// Runtime selects a runtime base image (e.g. "python:3.14",
	// "node:22", "supergateway-python:3.14", "binary",
	// "adapter-legacy"). Absent means the first matching package is a
	// direct OCI image.
	// +optional
	Runtime string `json:"runtime,omitempty"`

	// Replicas is the desired replica count
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=1
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`

	// Scaling configures autoscaling bounds
	// +optional
	Scaling *ScalingConfig `json:"scaling,omitempty"`

	// Resources defines the resource requirements for the server container
	// +optional
	Resources ResourceRequirements `json:"resources,omitempty"`

	// Routing configures the HTTP paths exposed through the ingress
	// +optional
	Routing RoutingConfig `json:"routing,omitempty"`

	// Environment is the literal environment for the server container
	// +optional
	Environment map[string]string `json:"environment,omitempty"`

	// EnvironmentVariables declares env var names resolved from the
	// workspace secret store
	// +optional
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables,omitempty"`
}

// ContainerSpec describes the server container
type ContainerSpec struct {
	// Image is the derived container image reference
	// +optional
	Image string `json:"image,omitempty"`

	// Registry is the registry hosting the image
	// +optional
	Registry string `json:"registry,omitempty"`

	// Port is the port the server listens on
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	// +kubebuilder:default=8000
	// +optional
	Port int32 `json:"port,omitempty"`
}

// DeploymentConfig describes how the server process is exposed
type DeploymentConfig struct {
	// Protocol is the server transport protocol
	// +kubebuilder:validation:Enum=http;stdio
	// +kubebuilder:default=http
	// +optional
	Protocol string `json:"protocol,omitempty"`

	// HealthPath is the readiness probe path, when the server exposes one
	// +optional
	HealthPath string `json:"healthPath,omitempty"`

	// Stdio configures stdio servers run behind an adapter runtime
	// +optional
	Stdio *StdioConfig `json:"stdio,omitempty"`
}

// StdioConfig configures a stdio server executable
type StdioConfig struct {
	// Executable is the server entrypoint
	// +kubebuilder:validation:Required
	Executable string `json:"executable"`

	// Args are arguments passed to the executable
	// +optional
	Args []string `json:"args,omitempty"`

	// WorkingDir is the working directory for the executable
	// +optional
	WorkingDir string `json:"workingDir,omitempty"`
}

// Package is one architecture-specific package descriptor
type Package struct {
	// RegistryType is the package registry type (mcpb or oci)
	// +kubebuilder:validation:Enum=mcpb;oci
	RegistryType string `json:"registryType"`

	// Identifier is the package identifier: a bundle URL for mcpb, an
	// image reference for oci
	// +kubebuilder:validation:Required
	Identifier string `json:"identifier"`

	// Version is the package version; empty means latest
	// +optional
	Version string `json:"version,omitempty"`

	// SHA256 is the bundle content hash used for download verification
	// +optional
	SHA256 string `json:"sha256,omitempty"`

	// RuntimeArguments are arguments passed to the runtime at startup
	// +optional
	RuntimeArguments []string `json:"runtimeArguments,omitempty"`

	// EnvironmentVariables declared by this package
	// +optional
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables,omitempty"`

	// Transport carries the package's transport metadata
	// +optional
	Transport *PackageTransport `json:"transport,omitempty"`
}

// PackageTransport carries transport metadata from the server definition
type PackageTransport struct {
	// Type is the transport type (e.g. streamable-http, sse, stdio)
	// +optional
	Type string `json:"type,omitempty"`

	// URL is the advertised transport URL
	// +optional
	URL string `json:"url,omitempty"`
}

// EnvironmentVariable declares an env var resolved at deploy time
type EnvironmentVariable struct {
	// Name of the environment variable
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// Description of the variable's purpose
	// +optional
	Description string `json:"description,omitempty"`

	// IsSecret marks the variable as resolved from the workspace secret store
	// +kubebuilder:default=false
	// +optional
	IsSecret bool `json:"isSecret,omitempty"`

	// IsRequired marks the variable as required for the server to run
	// +kubebuilder:default=false
	// +optional
	IsRequired bool `json:"isRequired,omitempty"`
}

// ScalingConfig configures autoscaling bounds
type ScalingConfig struct {
	// MinReplicas is the lower autoscaling bound
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=0
	// +optional
	MinReplicas int32 `json:"minReplicas,omitempty"`

	// MaxReplicas is the upper autoscaling bound
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=1
	// +optional
	MaxReplicas int32 `json:"maxReplicas,omitempty"`

	// TargetConcurrency is the per-replica concurrency target; zero
	// disables autoscaling
	// +kubebuilder:validation:Minimum=0
	// +optional
	TargetConcurrency int32 `json:"targetConcurrency,omitempty"`

	// ScaleDownDelaySeconds is the stabilization window before scaling down
	// +kubebuilder:validation:Minimum=0
	// +optional
	ScaleDownDelaySeconds int32 `json:"scaleDownDelaySeconds,omitempty"`
}

// ResourceRequirements describes the compute resource requirements
type ResourceRequirements struct {
	// Limits describes the maximum amount of compute resources allowed
	// +optional
	Limits ResourceList `json:"limits,omitempty"`

	// Requests describes the minimum amount of compute resources required
	// +optional
	Requests ResourceList `json:"requests,omitempty"`
}

// ResourceList is a set of (resource name, quantity) pairs
type ResourceList struct {
	// CPU is the CPU quantity (e.g. "500m")
	// +optional
	CPU string `json:"cpu,omitempty"`

	// Memory is the memory quantity (e.g. "256Mi")
	// +optional
	Memory string `json:"memory,omitempty"`
}

// RoutingConfig configures the paths exposed through the ingress
type RoutingConfig struct {
	// Path is the base routing path; defaults to
	// /{workspace_id}/{server_name}
	// +optional
	Path string `json:"path,omitempty"`

	// Port is the service port; defaults to the container port
	// +optional
	Port int32 `json:"port,omitempty"`

	// HealthPath is the in-container health endpoint
	// +kubebuilder:default=/health
	// +optional
	HealthPath string `json:"healthPath,omitempty"`

	// MCPPath is the in-container MCP endpoint
	// +kubebuilder:default=/mcp
	// +optional
	MCPPath string `json:"mcpPath,omitempty"`
}

// MCPServiceStatus defines the observed state of MCPService
type MCPServiceStatus struct {
	// Phase is the current phase of the MCPService
	// +optional
	Phase MCPServicePhase `json:"phase,omitempty"`

	// DeploymentStatus reflects the observed workload state
	// +optional
	DeploymentStatus *DeploymentStatus `json:"deploymentStatus,omitempty"`

	// Conditions represent the latest available observations of the
	// MCPService's state
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ServiceEndpoint is the cluster-local URL of the server
	// +optional
	ServiceEndpoint string `json:"serviceEndpoint,omitempty"`

	// LastReconcileTime is when the operator last processed this object
	// +optional
	LastReconcileTime *metav1.Time `json:"lastReconcileTime,omitempty"`
}

// DeploymentStatus reflects the observed workload state
type DeploymentStatus struct {
	// Ready indicates whether the workload serves traffic
	Ready bool `json:"ready"`

	// Replicas is the observed replica count
	// +optional
	Replicas int32 `json:"replicas,omitempty"`

	// ReadyReplicas is the observed ready replica count
	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`
}

// MCPServicePhase is the phase of the MCPService
// +kubebuilder:validation:Enum=Pending;Running;Failed;Unknown
type MCPServicePhase string

const (
	// MCPServicePhasePending means the server is being created or is
	// waiting for replicas to become ready
	MCPServicePhasePending MCPServicePhase = "Pending"

	// MCPServicePhaseRunning means the server is serving traffic
	MCPServicePhaseRunning MCPServicePhase = "Running"

	// MCPServicePhaseFailed means the server hit a terminal error
	MCPServicePhaseFailed MCPServicePhase = "Failed"

	// MCPServicePhaseUnknown means the state has not been observed yet
	MCPServicePhaseUnknown MCPServicePhase = "Unknown"
)

// Condition types recorded on the MCPService status.
const (
	// ConditionAvailable tracks workload availability
	ConditionAvailable = "Available"

	// ConditionInvalidLabels is set when required tenancy labels are missing
	ConditionInvalidLabels = "InvalidLabels"

	// ConditionArchitectureMismatch is set when no package matches the
	// cluster architecture
	ConditionArchitectureMismatch = "ArchitectureMismatch"
)

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
//+kubebuilder:printcolumn:name="Endpoint",type="string",JSONPath=".status.serviceEndpoint"
//+kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// MCPService is the Schema for the mcpservices API
type MCPService struct {
	metav1.TypeMeta   `json:",inline"` // nolint:revive
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MCPServiceSpec   `json:"spec,omitempty"`
	Status MCPServiceStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// MCPServiceList contains a list of MCPService
type MCPServiceList struct {
	metav1.TypeMeta `json:",inline"` // nolint:revive
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MCPService `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MCPService{}, &MCPServiceList{})
}
