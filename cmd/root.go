package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/buildcell/cellctl/internal/logging"
)

var (
	verbosity  int
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "cellctl",
	Short: "Ephemeral container validation runs for git working trees",
	Long: `cellctl validates a git working tree inside an ephemeral Linux container.

Each run provisions a fresh cell from a base image, injects the
caller's committed history (and optionally uncommitted changes), runs
a fixed sequence of validation phases as an unprivileged user, and
tears the cell down on every exit path, interrupts included. Phase
failures are collected, not fatal: one run reports everything that is
broken.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbosity, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Enable verbose output (repeat for more detail)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
)
