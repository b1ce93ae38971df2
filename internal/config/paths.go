package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "trakt-data"

// ConfigDir returns the directory holding the config file.
func ConfigDir() string {
	if v := os.Getenv("TRAKT_DATA_CONFIG_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

// DefaultCacheDir returns the default response cache directory under
// $XDG_CACHE_HOME.
func DefaultCacheDir() string {
	if v := os.Getenv("TRAKT_DATA_CACHE_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.CacheHome, appName)
}

// ConfigFile returns the path of the TOML config file.
func ConfigFile() string { return filepath.Join(ConfigDir(), "config.toml") }
