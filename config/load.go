package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/veldt-io/exportd/errors"
)

// DefaultConfigDir returns the directory exportd keeps its config and
// database in by default.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".exportd")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// SetDefaults installs default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(DefaultConfigDir(), "exportd.db"))
	v.SetDefault("auto_export.mode", ModeImmediate)
	v.SetDefault("auto_export.quiet_period_ms", 1000)
	v.SetDefault("auto_export.max_exports_per_minute", 30)
	v.SetDefault("idle.wait_seconds", 300)
	v.SetDefault("idle.interval_seconds", 5)
	v.SetDefault("idle.cpu_threshold", 10.0)
	v.SetDefault("log.json", false)
}

// Load reads configuration from the default locations: defaults, then the
// config file (if present), then EXPORTD_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(DefaultConfigDir())
	v.AddConfigPath(".")

	v.SetEnvPrefix("EXPORTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine: defaults + env apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if !ValidMode(cfg.AutoExport.Mode) {
		return nil, errors.NewInvalidRequestError("invalid auto_export.mode %q", cfg.AutoExport.Mode)
	}
	return &cfg, nil
}
