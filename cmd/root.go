// =============================================================================
// Spond Attendance Pipeline - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// ('process', 'version') are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (spond-attendance)
//   ├── processCmd (spond-attendance process)
//   └── versionCmd (spond-attendance version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the main configuration file, overridable via
// the --config flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "spond-attendance",
	Short: "Process Spond attendance exports into tidy CSV files",
	Long: `spond-attendance ingests the periodic spreadsheet exports of a club's
Spond attendance records, reshapes them from one-column-per-session into a
normalized per-attendance-record table, deduplicates overlapping exports
(the oldest export wins, so departed members keep their history), applies
curated canonical session names, and writes pipe-delimited output tables
plus a per-session attendance rollup.

Example Usage:
  spond-attendance process ./exports                 # Incremental run
  spond-attendance process ./exports --full-refresh  # Reprocess everything
  spond-attendance process ./exports --no-llm        # Skip name suggestions`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main(). Errors go to stderr with exit code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
}
