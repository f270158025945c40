package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set by goreleaser via ldflags
	Version = "dev"
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "robotmk-scheduler",
	Short: "Periodic Robot Framework plan scheduler and execution pipeline",
	Long: `robotmk-scheduler runs declared Robot Framework test plans on a
periodic, phase-aligned schedule, aggregates their attempt/rebot
artifacts, and publishes JSON status sections for an external monitoring
agent to read.

Core Commands:
  run                  Run the setup/build/scheduler pipeline until cancelled
  status               Print a summary of the published results tree

The scheduler watches a run-flag file for deletion as its cancellation
trigger (see "run --run-flag"), in addition to the usual process
signals.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the plan configuration YAML file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.SetVersionTemplate(fmt.Sprintf("robotmk-scheduler version %s\n", Version))
}

func exitError(msg string) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	os.Exit(1)
}
