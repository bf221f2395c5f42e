package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veldt-io/exportd/bus"
	"github.com/veldt-io/exportd/config"
	"github.com/veldt-io/exportd/export"
	"github.com/veldt-io/exportd/idle"
	"github.com/veldt-io/exportd/logger"
	"github.com/veldt-io/exportd/translate"
)

// ServeCmd starts the export daemon
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the export daemon",
	Long: `Start the export daemon in foreground mode.

The daemon will:
- Re-enqueue exports interrupted in a previous run
- Route item changes into debounced export runs
- Watch the machine's idle state when trigger mode is "idle"
- Reload configuration when the config file changes
- Run until interrupted (Ctrl+C) and drain in-flight exports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		b := bus.New(logger.Logger.Named("bus"))
		registry := translate.DefaultRegistry()
		coord := export.NewCoordinator(database, b, registry, cfg, logger.Logger.Named("export"))

		// The idle watcher always runs; the trigger controller decides
		// whether its signal matters for the current mode
		idleWatcher := idle.NewWatcher(idle.Config{
			IdleWait:     cfg.Idle.Wait(),
			Interval:     cfg.Idle.Interval(),
			CPUThreshold: cfg.Idle.CPUThreshold,
		}, logger.Logger.Named("idle"))
		idleWatcher.AddObserver(func(state idle.State) {
			b.Emit(export.EventIdleState, state)
		})
		idleWatcher.Start()

		configWatcher, err := newConfigWatcher(cmd, b)
		if err != nil {
			logger.Logger.Warnw("Config hot-reload disabled", "error", err)
		} else if configWatcher != nil {
			defer configWatcher.Stop()
		}

		if err := coord.Init(); err != nil {
			return err
		}

		fmt.Println("exportd daemon started")
		fmt.Printf("  Database: %s\n", cfg.Database.Path)
		fmt.Printf("  Trigger mode: %s\n", coord.Trigger().Mode())
		fmt.Printf("  Quiet period: %v\n", cfg.AutoExport.QuietPeriod())
		fmt.Printf("  Translators: %v\n", registry.List())
		fmt.Printf("\nPress Ctrl+C to shut down\n\n")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down, draining in-flight exports...")

		idleWatcher.Stop()
		coord.Shutdown()

		fmt.Println("exportd daemon stopped")
		return nil
	},
}

// newConfigWatcher wires config file changes into preference events. Returns
// (nil, nil) when no config file exists to watch.
func newConfigWatcher(cmd *cobra.Command, b *bus.Bus) (*config.Watcher, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	watcher, err := config.NewWatcher(path, logger.Logger.Named("config"))
	if err != nil {
		return nil, err
	}
	watcher.OnReload(func(cfg *config.Config) error {
		b.Emit(export.EventPreferencesChanged, cfg.AutoExport.Mode)
		return nil
	})
	watcher.Start()
	return watcher, nil
}
