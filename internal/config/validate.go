package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if err := c.Scan.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scan: %w", err))
	}
	if err := c.Reconcile.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("reconcile: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Validate checks LibraryConfig for errors.
func (c *LibraryConfig) Validate() error {
	switch c.Backend {
	case "", "sqlite", "bleve":
		// valid
	default:
		return fmt.Errorf("invalid backend: %s (must be sqlite or bleve)", c.Backend)
	}
	return nil
}

// Validate checks ScanConfig for errors.
func (c *ScanConfig) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers must be non-negative")
	}
	if c.BatchSize < 0 {
		return errors.New("batch_size must be non-negative")
	}
	if c.WatchInterval < 0 {
		return errors.New("watch_interval must be non-negative")
	}
	return nil
}

func (c *ReconcileConfig) Validate() error {
	if c.QueueSize < 0 {
		return errors.New("queue_size must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	switch c.Format {
	case "", "console", "json":
		// valid
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Format)
	}
	return nil
}
