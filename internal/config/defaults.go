package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Library: LibraryConfig{
			Database: filepath.Join(home, ".musicindex.sqlite"),
			MusicDir: filepath.Join(home, "Music"),
			Backend:  "sqlite",
		},
		Scan: ScanConfig{
			BatchSize:     500,
			WatchInterval: 10,
		},
		Reconcile: ReconcileConfig{
			QueueSize: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults and expands
// paths.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Library
	if c.Library.Database == "" {
		c.Library.Database = d.Library.Database
	}
	if c.Library.MusicDir == "" {
		c.Library.MusicDir = d.Library.MusicDir
	}
	if c.Library.Backend == "" {
		c.Library.Backend = d.Library.Backend
	}
	c.Library.Database = ExpandPath(c.Library.Database)
	c.Library.MusicDir = ExpandPath(c.Library.MusicDir)

	// Scan
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = d.Scan.BatchSize
	}
	if c.Scan.WatchInterval == 0 {
		c.Scan.WatchInterval = d.Scan.WatchInterval
	}

	// Reconcile
	if c.Reconcile.QueueSize == 0 {
		c.Reconcile.QueueSize = d.Reconcile.QueueSize
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.File != "" {
		c.Log.File = ExpandPath(c.Log.File)
	}
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
