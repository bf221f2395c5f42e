// Package config manages exportd configuration: a TOML file loaded through
// viper with environment overrides, plus live reload via a file watcher so
// the trigger mode can be switched without restarting the daemon.
package config

import (
	"time"
)

// Mode values for auto_export.mode.
const (
	ModeOff       = "off"
	ModeImmediate = "immediate"
	ModeIdle      = "idle"
)

// Config is the root configuration.
type Config struct {
	Database   Database   `mapstructure:"database"`
	AutoExport AutoExport `mapstructure:"auto_export"`
	Idle       Idle       `mapstructure:"idle"`
	Log        Log        `mapstructure:"log"`
}

// Database configures the sqlite store.
type Database struct {
	Path string `mapstructure:"path"`
}

// AutoExport configures the scheduling pipeline.
type AutoExport struct {
	// Mode is the global trigger mode: off, immediate, or idle.
	Mode string `mapstructure:"mode"`
	// QuietPeriodMS is the debounce quiet period in milliseconds.
	QuietPeriodMS int `mapstructure:"quiet_period_ms"`
	// MaxExportsPerMinute rate-limits execution per definition.
	MaxExportsPerMinute int `mapstructure:"max_exports_per_minute"`
}

// QuietPeriod returns the debounce quiet period as a duration.
func (a AutoExport) QuietPeriod() time.Duration {
	return time.Duration(a.QuietPeriodMS) * time.Millisecond
}

// Idle configures machine-idle detection.
type Idle struct {
	WaitSeconds     int     `mapstructure:"wait_seconds"`
	IntervalSeconds int     `mapstructure:"interval_seconds"`
	CPUThreshold    float64 `mapstructure:"cpu_threshold"`
}

// Wait returns the idle wait as a duration.
func (i Idle) Wait() time.Duration {
	return time.Duration(i.WaitSeconds) * time.Second
}

// Interval returns the sampling interval as a duration.
func (i Idle) Interval() time.Duration {
	return time.Duration(i.IntervalSeconds) * time.Second
}

// Log configures logger output.
type Log struct {
	JSON bool `mapstructure:"json"`
}

// ValidMode reports whether s is a recognized trigger mode.
func ValidMode(s string) bool {
	switch s {
	case ModeOff, ModeImmediate, ModeIdle:
		return true
	default:
		return false
	}
}
