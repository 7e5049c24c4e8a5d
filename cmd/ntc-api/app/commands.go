// Package app provides the CLI commands for the control plane API server.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ntc-api",
	Short: "NimbleTools control plane API",
	Long: `The control plane API manages workspaces and MCP servers on a
Kubernetes cluster. It translates server definitions into MCPService
resources and leaves the actual workload reconciliation to the operator.`,
}

// NewRootCmd creates the root command for the ntc-api binary.
func NewRootCmd() *cobra.Command {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}
