// Package config handles configuration loading, validation, and hot
// reloading for macstat.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"macstat/internal/device"
	"macstat/internal/logging"
)

// Config holds the complete macstat configuration.
type Config struct {
	// Watch configures the device watch loop.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`

	// Output configures how events are printed.
	Output OutputConfig `toml:"output" json:"output" yaml:"output"`

	// Logging configures diagnostic logging.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// WatchConfig holds watch loop configuration.
type WatchConfig struct {
	// SliceMs bounds how long one pump of OS events may run before the
	// loop polls the keyboard.
	SliceMs int `toml:"slice_ms" json:"slice_ms" yaml:"slice_ms"`

	// QuitKeys are single characters that end a watch session.
	QuitKeys []string `toml:"quit_keys" json:"quit_keys" yaml:"quit_keys"`

	// DefaultClass is watched when no class argument is given.
	DefaultClass string `toml:"default_class" json:"default_class" yaml:"default_class"`

	// CacheUnknownAudio records audio endpoints whose name cannot be
	// resolved, so they are not re-resolved on every change.
	CacheUnknownAudio bool `toml:"cache_unknown_audio" json:"cache_unknown_audio" yaml:"cache_unknown_audio"`

	// IgnoreNames are device names never printed, compared
	// case-insensitively. A pattern may carry one '*' at its start, its
	// end or both ("*Virtual", "Microsoft Teams*"); other globbing is not
	// supported and a '*' inside a pattern fails validation.
	IgnoreNames []string `toml:"ignore_names" json:"ignore_names" yaml:"ignore_names"`

	// HotReload re-reads IgnoreNames while watching.
	HotReload bool `toml:"hot_reload" json:"hot_reload" yaml:"hot_reload"`
}

// OutputConfig holds event rendering configuration.
type OutputConfig struct {
	// Color enables ANSI styling when stdout is a terminal.
	Color bool `toml:"color" json:"color" yaml:"color"`

	// Rule prints a dash rule after each event line.
	Rule bool `toml:"rule" json:"rule" yaml:"rule"`

	// TimeFormat is a Go time layout for event timestamps.
	TimeFormat string `toml:"time_format" json:"time_format" yaml:"time_format"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file used by the "file" and "both" outputs.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// Default slice bounds in milliseconds.
const (
	DefaultSliceMs = 200
	MinSliceMs     = 10
	MaxSliceMs     = 999
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Watch: WatchConfig{
			SliceMs:      DefaultSliceMs,
			QuitKeys:     []string{"q"},
			DefaultClass: device.ClassPeripheral.String(),
			HotReload:    true,
		},
		Output: OutputConfig{
			Color:      true,
			Rule:       true,
			TimeFormat: device.DefaultTimeLayout,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// ApplyEnvOverrides applies MACSTAT_* environment variables. Malformed
// numeric values are ignored so Validate reports the file value instead.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MACSTAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("MACSTAT_SLICE_MS"); v != "" {
		if ms, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Watch.SliceMs = ms
		}
	}
	if os.Getenv("MACSTAT_NO_COLOR") != "" || os.Getenv("NO_COLOR") != "" {
		c.Output.Color = false
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Watch.QuitKeys = append([]string(nil), c.Watch.QuitKeys...)
	clone.Watch.IgnoreNames = append([]string(nil), c.Watch.IgnoreNames...)
	return &clone
}

// Slice returns the pump slice as a duration.
func (w WatchConfig) Slice() time.Duration {
	return time.Duration(w.SliceMs) * time.Millisecond
}

// QuitRunes returns the first rune of each quit key.
func (w WatchConfig) QuitRunes() []rune {
	out := make([]rune, 0, len(w.QuitKeys))
	for _, k := range w.QuitKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(k)
		out = append(out, r)
	}
	return out
}

// Class parses DefaultClass.
func (w WatchConfig) Class() (device.Class, error) {
	return device.ParseClass(w.DefaultClass)
}

// LoggerConfig converts the section into a logging.Config.
func (l LoggingConfig) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	if l.Output != "" {
		cfg.Output = l.Output
	}
	if l.FilePath != "" {
		cfg.FilePath = expandPath(l.FilePath)
	}
	cfg.MaxSize = int64(l.MaxSizeMB)
	cfg.MaxBackups = l.MaxBackups
	cfg.MaxAge = l.MaxAgeDays
	cfg.Compress = l.Compress
	return cfg, nil
}

// String summarises the settings that matter for a watch session.
func (c *Config) String() string {
	return fmt.Sprintf("slice=%dms class=%s quit=%v ignore=%d color=%t",
		c.Watch.SliceMs, c.Watch.DefaultClass, c.Watch.QuitKeys, len(c.Watch.IgnoreNames), c.Output.Color)
}
