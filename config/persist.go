package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/veldt-io/exportd/errors"
)

// tomlConfig mirrors Config with toml tags for persistence.
type tomlConfig struct {
	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`
	AutoExport struct {
		Mode                string `toml:"mode"`
		QuietPeriodMS       int    `toml:"quiet_period_ms"`
		MaxExportsPerMinute int    `toml:"max_exports_per_minute"`
	} `toml:"auto_export"`
	Idle struct {
		WaitSeconds     int     `toml:"wait_seconds"`
		IntervalSeconds int     `toml:"interval_seconds"`
		CPUThreshold    float64 `toml:"cpu_threshold"`
	} `toml:"idle"`
	Log struct {
		JSON bool `toml:"json"`
	} `toml:"log"`
}

// Write persists cfg as TOML at configPath, creating parent directories.
func Write(cfg *Config, configPath string) error {
	var out tomlConfig
	out.Database.Path = cfg.Database.Path
	out.AutoExport.Mode = cfg.AutoExport.Mode
	out.AutoExport.QuietPeriodMS = cfg.AutoExport.QuietPeriodMS
	out.AutoExport.MaxExportsPerMinute = cfg.AutoExport.MaxExportsPerMinute
	out.Idle.WaitSeconds = cfg.Idle.WaitSeconds
	out.Idle.IntervalSeconds = cfg.Idle.IntervalSeconds
	out.Idle.CPUThreshold = cfg.Idle.CPUThreshold
	out.Log.JSON = cfg.Log.JSON

	data, err := toml.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}
