package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veldt-io/exportd/config"
	"github.com/veldt-io/exportd/errors"
)

// ConfigCmd manages daemon configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage daemon configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// ConfigShowCmd prints the effective configuration
var ConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Database path: %s\n", cfg.Database.Path)
		fmt.Printf("Trigger mode: %s\n", cfg.AutoExport.Mode)
		fmt.Printf("Quiet period: %v\n", cfg.AutoExport.QuietPeriod())
		fmt.Printf("Max exports per minute: %d\n", cfg.AutoExport.MaxExportsPerMinute)
		fmt.Printf("Idle wait: %v\n", cfg.Idle.Wait())
		fmt.Printf("Idle sample interval: %v\n", cfg.Idle.Interval())
		fmt.Printf("Idle CPU threshold: %.1f%%\n", cfg.Idle.CPUThreshold)
		fmt.Printf("JSON logs: %t\n", cfg.Log.JSON)
		return nil
	},
}

// ConfigSetModeCmd persists a new trigger mode. A running daemon picks the
// change up through its config file watcher.
var ConfigSetModeCmd = &cobra.Command{
	Use:   "set-mode <off|immediate|idle>",
	Short: "Set the auto-export trigger mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := args[0]
		if !config.ValidMode(mode) {
			return errors.NewInvalidRequestError("unknown trigger mode %q (expected off, immediate, or idle)", mode)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.AutoExport.Mode = mode

		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.Write(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Trigger mode set to %s (%s)\n", mode, path)
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(ConfigShowCmd)
	ConfigCmd.AddCommand(ConfigSetModeCmd)
}
