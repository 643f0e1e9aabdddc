package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, `
[library]
database = "/var/lib/musicindex/library.sqlite"
music_dir = "/srv/music"
backend = "bleve"
various_artists = "Various Artists"

[scan]
workers = 4
serial = true

[log]
level = "debug"
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/musicindex/library.sqlite", cfg.Library.Database)
	assert.Equal(t, "/srv/music", cfg.Library.MusicDir)
	assert.Equal(t, "bleve", cfg.Library.Backend)
	assert.Equal(t, "Various Artists", cfg.Library.VariousArtists)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.True(t, cfg.Scan.Serial)
	assert.Equal(t, 500, cfg.Scan.BatchSize)
	assert.Equal(t, 10, cfg.Scan.WatchInterval)
	assert.Equal(t, 64, cfg.Reconcile.QueueSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadSearchesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".musicindex.sqlite"), cfg.Library.Database)
	assert.Equal(t, filepath.Join(home, "Music"), cfg.Library.MusicDir)

	dir := filepath.Join(home, "xdg", "musicindex")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[library]\nmusic_dir = \"~/Audio\"\n"), 0o644))

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Audio"), cfg.Library.MusicDir)

	require.NoError(t, os.WriteFile(filepath.Join(home, ".musicindexrc"),
		[]byte("[library]\nmusic_dir = \"/mnt/music\"\n"), 0o644))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "/mnt/music", cfg.Library.MusicDir)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "[library]\nbackend = \"sqlite\"\n")
	t.Setenv("MUSICINDEX_BACKEND", "bleve")
	t.Setenv("MUSICINDEX_SCAN_WORKERS", "3")
	t.Setenv("MUSICINDEX_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "bleve", cfg.Library.Backend)
	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Library.Backend = "mongo"
	cfg.Scan.BatchSize = -1
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "library: invalid backend: mongo")
	assert.Contains(t, err.Error(), "scan: batch_size must be non-negative")
	assert.Contains(t, err.Error(), "log: invalid log format: xml")
}

func TestLoadFromMalformed(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, "[library\n"))
	assert.Error(t, err)
}
