package config

// Config is the root configuration structure.
type Config struct {
	Library   LibraryConfig   `toml:"library"`
	Scan      ScanConfig      `toml:"scan"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Log       LogConfig       `toml:"log"`
}

// LibraryConfig holds index and storage settings.
type LibraryConfig struct {
	Database string `toml:"database"`
	MusicDir string `toml:"music_dir"`
	// Backend is the search backend: sqlite or bleve.
	Backend string `toml:"backend"`
	// VariousArtists, when set, names albums whose tracks disagree on the
	// album artist.
	VariousArtists string `toml:"various_artists"`
}

// ScanConfig holds local scanner settings.
type ScanConfig struct {
	Workers   int  `toml:"workers"`
	BatchSize int  `toml:"batch_size"`
	Serial    bool `toml:"serial"`
	// WatchInterval is the quiet period in seconds before watched changes are applied.
	WatchInterval int `toml:"watch_interval"`
}

type ReconcileConfig struct {
	QueueSize int `toml:"queue_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	File   string `toml:"file"`
	Format string `toml:"format"`
}
