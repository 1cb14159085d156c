// Package commands wires the CLI: manifest loading, state store, engine
// construction, and one subcommand per lifecycle operation.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	manifestPath string
	statePath    string
	logLevel     string
	traceFile    string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shellform",
		Short: "shellform - declarative shell-resource reconciliation",
		Long: `shellform reconciles resources managed entirely through shell commands.

A manifest declares, per resource, the commands of its lifecycle (create,
update, destroy) and the read commands that recompute its observed state.
shellform plans against tracked state, executes the minimal set of commands
over a local shell or SSH, and persists the result.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "f", "shellform.yaml", "manifest file path")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "shellform.db", "state database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "write lifecycle step traces to a file")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newDestroyCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newReadCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
