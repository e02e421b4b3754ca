// Package config loads agentdeck configuration from YAML with environment
// overrides. All fields have working defaults so a missing file is not an
// error.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig maps to the database section.
type DatabaseConfig struct {
	// URI is the connection URI; the backend family is derived from it.
	URI string `yaml:"uri"`

	// BaseDir is an optional directory for migration artifacts.
	BaseDir string `yaml:"base_dir"`

	// PoolSize bounds the client/server connection pool. Ignored for the
	// embedded backend.
	PoolSize int `yaml:"pool_size"`

	// DirtyReads enables read_uncommitted on the embedded backend.
	DirtyReads bool `yaml:"dirty_reads"`
}

// LoggingConfig maps to the logging section.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			URI:      "sqlite:///agentdeck.db",
			PoolSize: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path, falling back to defaults when path is
// empty or the file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays AGENTDECK_* environment variables onto the loaded
// configuration.
func (c *Config) applyEnv() {
	if v := os.Getenv("AGENTDECK_DATABASE_URI"); v != "" {
		c.Database.URI = v
	}
	if v := os.Getenv("AGENTDECK_DATABASE_BASE_DIR"); v != "" {
		c.Database.BaseDir = v
	}
	if v := os.Getenv("AGENTDECK_DATABASE_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Database.PoolSize = n
		}
	}
	if v := os.Getenv("AGENTDECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("database.uri must not be empty")
	}
	if c.Database.PoolSize < 0 {
		return fmt.Errorf("database.pool_size must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
