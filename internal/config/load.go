package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file on top of DefaultConfig, then
// validates the result. Unlike the teacher's two-pass decode (which
// extracts per-drive sections from a raw map), a single-drive config has
// no nested sections, so one toml.Decode pass suffices.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("loading config file", slog.String("path", path))

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns DefaultConfig
// unvalidated (a fresh install has no credentials yet; validation runs
// once the user has actually filled in the file).
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", slog.String("path", path))

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// EnsureLocalFolder creates cfg.LocalFolder (and any missing parents) if
// it does not already exist, per §6 "local_folder: ... auto-created if
// absent".
func EnsureLocalFolder(cfg *Config) error {
	if err := os.MkdirAll(cfg.LocalFolder, 0o755); err != nil {
		return fmt.Errorf("creating local_folder %s: %w", cfg.LocalFolder, err)
	}

	return nil
}
