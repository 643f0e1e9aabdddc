// Package config loads musicindex settings from TOML files and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.musicindexrc, $XDG_CONFIG_HOME/musicindex/config.toml, ~/.config/musicindex/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	if path := findConfigFile(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".musicindexrc"),
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "musicindex", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Library
	if v := os.Getenv("MUSICINDEX_DATABASE"); v != "" {
		cfg.Library.Database = v
	}
	if v := os.Getenv("MUSICINDEX_MUSIC_DIR"); v != "" {
		cfg.Library.MusicDir = v
	}
	if v := os.Getenv("MUSICINDEX_BACKEND"); v != "" {
		cfg.Library.Backend = v
	}
	if v := os.Getenv("MUSICINDEX_VARIOUS_ARTISTS"); v != "" {
		cfg.Library.VariousArtists = v
	}

	// Scan
	if v := os.Getenv("MUSICINDEX_SCAN_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Workers = i
		}
	}
	if v := os.Getenv("MUSICINDEX_SCAN_SERIAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Scan.Serial = b
		}
	}

	// Log
	if v := os.Getenv("MUSICINDEX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MUSICINDEX_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
