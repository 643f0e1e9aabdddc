// Package cli implements the musicindex command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"musicindex/internal/config"
)

var (
	cfgFile  string
	debug    bool
	database string
	location string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "musicindex",
	Short: "Index, search and play a local music library",
	Long: `musicindex keeps an index of the tracks, albums and artists found in a music
directory and answers SMJ7-style queries over it. Run without a command to
start the interactive prompt.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE:         runInteractive,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.musicindexrc)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "the location to store the media database")
	rootCmd.PersistentFlags().StringVarP(&location, "location", "l", "", "the location to search for media files")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if database != "" {
		cfg.Library.Database = config.ExpandPath(database)
	}
	if location != "" {
		cfg.Library.MusicDir = config.ExpandPath(location)
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	return nil
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	zc.Level = level
	if c.File != "" {
		zc.OutputPaths = []string{c.File}
		zc.ErrorOutputPaths = []string{c.File}
	}
	return zc.Build()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
