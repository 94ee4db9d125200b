// Package config provides environment-based configuration for the embedding backend.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// DefaultModelsFile is the registry file name looked up next to the executable.
const DefaultModelsFile = "models.json"

// Config holds all configuration for the embedding backend.
type Config struct {
	// Server
	Port           int
	LogLevel       string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	APIKey         string // empty disables auth

	// Registry
	ModelsPath     string
	BackendVersion string // empty means absent from /capabilities

	// Generation
	BatchWorkers int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	c := &Config{
		Port:           envInt("EMBEDDING_BACKEND_PORT", 8501),
		LogLevel:       envStr("EMBEDDING_BACKEND_LOG_LEVEL", "info"),
		RequestTimeout: envDuration("EMBEDDING_BACKEND_REQUEST_TIMEOUT", 30*time.Second),
		MaxBodyBytes:   int64(envInt("EMBEDDING_BACKEND_MAX_BODY_BYTES", 32<<20)),
		APIKey:         envStr("EMBEDDING_BACKEND_API_KEY", ""),
		ModelsPath:     envStr("LIBRARIAN_EMBEDDING_MODELS_PATH", defaultModelsPath()),
		BackendVersion: envStr("LIBRARIAN_EMBEDDING_BACKEND_VERSION", ""),
		BatchWorkers:   envInt("EMBEDDING_BACKEND_BATCH_WORKERS", runtime.GOMAXPROCS(0)),
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("EMBEDDING_BACKEND_LOG_LEVEL: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return nil, fmt.Errorf("EMBEDDING_BACKEND_PORT out of range: %d", c.Port)
	}
	if c.BatchWorkers <= 0 {
		return nil, fmt.Errorf("EMBEDDING_BACKEND_BATCH_WORKERS must be > 0, got %d", c.BatchWorkers)
	}
	if c.RequestTimeout <= 0 {
		return nil, fmt.Errorf("EMBEDDING_BACKEND_REQUEST_TIMEOUT must be > 0, got %s", c.RequestTimeout)
	}

	return c, nil
}

// SlogLevel returns the configured log level. Load has already validated it.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// defaultModelsPath resolves models.json next to the running executable,
// falling back to the working directory.
func defaultModelsPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultModelsFile
	}
	return filepath.Join(filepath.Dir(exe), DefaultModelsFile)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
