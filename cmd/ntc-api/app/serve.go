package app

import (
	"context"
	"fmt"
	"os/signal"
	goruntime "runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"

	mcpv1alpha1 "github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-operator/api/v1alpha1"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/api"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/auth"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/k8s"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logs"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/servers"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/workspaces"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control plane API server",
	Long: `Start the REST API that manages workspaces and MCP servers.
The server is stateless; all state lives in the cluster as namespaces,
secrets and MCPService resources.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	viper.MustBindEnv("auth-config", "NTC_AUTH_CONFIG")
	viper.MustBindEnv("cluster-arch", "NTC_CLUSTER_ARCH")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := viper.GetString("address")

	authConfigPath := viper.GetString("auth-config")
	if authConfigPath == "" {
		return fmt.Errorf("NTC_AUTH_CONFIG is required")
	}
	provider, err := auth.LoadProvider(authConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load auth provider: %w", err)
	}
	if err := provider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize auth provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Errorf("Auth provider shutdown failed: %v", err)
		}
	}()

	clientset, _, err := k8s.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(mcpv1alpha1.AddToScheme(scheme))
	ctrlClient, err := k8s.NewControllerRuntimeClient(scheme)
	if err != nil {
		return fmt.Errorf("failed to create controller-runtime client: %w", err)
	}

	arch := viper.GetString("cluster-arch")
	if arch == "" {
		arch, err = k8s.DetectArchitecture(ctx, clientset)
		if err != nil {
			logger.Warnf("Could not detect cluster architecture, assuming %s: %v", goruntime.GOARCH, err)
			arch = goruntime.GOARCH
		}
	}
	logger.Infof("Selecting server packages for architecture %s", arch)

	wsManager := workspaces.NewManager(clientset)
	deps := api.Deps{
		Workspaces: wsManager,
		Servers:    servers.NewManager(ctrlClient, wsManager, logs.NewAggregator(clientset), arch),
		Auth:       provider,
	}

	return api.Serve(ctx, address, deps)
}
