package cli

import (
	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/logging"
)

var (
	rootStateFile     string
	rootBackendType   string
	rootBackendConfig map[string]string
	rootLogLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Dependency-ordered infrastructure provisioning",
	Long: `Strata reconciles declared infrastructure against committed state.

It builds a dependency graph from your declarations, plans the minimal set
of changes, and executes them in dependency order with bounded parallelism.
Failures are isolated: independent branches keep going, and completed work
stays committed for the next pass.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(rootLogLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootStateFile, "state", ".strata/state.json", "Path to the local state file")
	rootCmd.PersistentFlags().StringVar(&rootBackendType, "backend", "local", "State backend (local or s3)")
	rootCmd.PersistentFlags().StringToStringVar(&rootBackendConfig, "backend-config", nil, "Backend settings (format: key=value)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(versionCmd)
}
