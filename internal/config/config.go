package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config contains application settings persisted as TOML.
type Config struct {
	BackendURL            string  `toml:"backend_url"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	DataDir               string  `toml:"data_dir"`
	Logging               Logging `toml:"logging"`
}

// RequestTimeout returns the configured remote call timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Store defines persistence operations for app configuration.
type Store interface {
	Load() (Config, error)
	Save(Config) error
}

// TOMLStore persists configuration in a single TOML file on disk.
type TOMLStore struct {
	path string
}

// NewTOMLStore creates a TOML-backed configuration store.
func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{path: path}
}

// Load reads configuration from disk or returns defaults when missing.
func (s *TOMLStore) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return Config{}, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return normalize(cfg), nil
}

// Save writes configuration as TOML and creates parent directories.
func (s *TOMLStore) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(normalize(cfg))
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// normalize trims user inputs and backfills required defaults.
func normalize(cfg Config) Config {
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if cfg.BackendURL == "" {
		cfg.BackendURL = defaultBackendURL
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = int(defaultRequestTimeout / time.Second)
	}
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	cfg.Logging.Level = strings.TrimSpace(cfg.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.TrimSpace(cfg.Logging.Format)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return cfg
}
