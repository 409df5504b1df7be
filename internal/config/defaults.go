package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	defaultBackendURL     = "http://localhost:8000"
	defaultRequestTimeout = 120 * time.Second
)

// Default returns baseline configuration for first launch.
func Default() Config {
	return Config{
		BackendURL:            defaultBackendURL,
		RequestTimeoutSeconds: int(defaultRequestTimeout / time.Second),
		DataDir:               defaultDataDir(),
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// defaultDataDir resolves the per-user application data directory.
func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".speechflow")
}
