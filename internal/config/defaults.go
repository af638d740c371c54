package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS: ~/Library/Application Support/macstat/
//   - other: $XDG_CONFIG_HOME/macstat/ or ~/.config/macstat/
func PlatformConfigDir() string {
	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "macstat")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "macstat")
	}
	return filepath.Join(home, ".config", "macstat")
}

// SupportedConfigFormats returns the config file extensions searched for.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile returns the first config.<ext> present in the config
// directory, or "".
func FindConfigFile() string {
	dir := PlatformConfigDir()
	for _, ext := range SupportedConfigFormats() {
		path := filepath.Join(dir, "config."+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigPath resolves the config file: MACSTAT_CONFIG if set, else an
// existing config file, else config.toml in the config directory.
func ConfigPath() string {
	if v := os.Getenv("MACSTAT_CONFIG"); v != "" {
		return expandPath(v)
	}
	if found := FindConfigFile(); found != "" {
		return found
	}
	return filepath.Join(PlatformConfigDir(), "config.toml")
}
