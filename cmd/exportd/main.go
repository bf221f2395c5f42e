package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veldt-io/exportd/cmd/exportd/commands"
	"github.com/veldt-io/exportd/logger"
)

var rootCmd = &cobra.Command{
	Use:   "exportd",
	Short: "exportd - debounced auto-export daemon for library data",
	Long: `exportd - debounced auto-export daemon.

exportd keeps exported snapshots of collections and libraries up to date:
definitions bind a scope to an output path and format, item changes are
routed through the scope tree, and a quiet-period scheduler coalesces
bursts of changes into single export runs.

Available commands:
  serve   - Start the export daemon
  add     - Register an export definition
  ls      - List export definitions
  rm      - Remove an export definition
  run     - Run one export immediately
  config  - Manage daemon configuration
  version - Show version information

Examples:
  exportd serve                                # Run the daemon in foreground
  exportd add --collection c42 --path out.json # Watch a collection
  exportd ls                                   # Show definitions and status
  exportd run 4fe2...                          # Force one export now`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.exportd/config.toml)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AddCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.RmCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
