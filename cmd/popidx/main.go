package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/teranos/popidx/cmd/popidx/commands"
	"github.com/teranos/popidx/logger"
)

var rootCmd = &cobra.Command{
	Use:   "popidx",
	Short: "popidx - incremental population indexes",
	Long: `popidx - Incremental population indexing.

popidx maintains named subsets of a simulated population, defined by
composable filters, and keeps them exact as entity attributes change.

Available commands:
  am       - Manage popidx configuration ("I am")
  simulate - Run a randomized population against the index manager
  version  - Show build information

Examples:
  popidx am show                      # Show current configuration
  popidx simulate --population 5000   # Churn 5000 entities and verify every index
  popidx simulate -vv --seed 7        # Same, with debug logging
  popidx --config ci.toml simulate    # Use one config file for everything`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.Setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	commands.BindRootFlags(rootCmd)

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		commands.ReportError(os.Stderr, err)
		logger.Cleanup()
		os.Exit(1)
	}
}
