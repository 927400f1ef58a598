// Package cli implements the labcv command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "labcv",
	Short: "Run the LabCV desktop application",
	Long: `LabCV starts its local backend service, waits until it answers,
and shows the LabCV interface in an application window with a tray icon.

Run with --headless to start only the backend and print its address.`,
	Args:         cobra.NoArgs,
	RunE:         runShell,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(waitCmd)
}
