// Package config loads the daemon configuration from a YAML file and fills
// in sensible defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete daemon configuration.
type Config struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Store struct {
		// Backend selects the job store implementation: memory, sqlite
		// or redis.
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
		RedisAddr  string `yaml:"redis_addr"`
	} `yaml:"store"`

	Pipeline struct {
		MaxAttempts     int           `yaml:"max_attempts"`
		WorkerCount     int           `yaml:"worker_count"`
		QueueCapacity   int           `yaml:"queue_capacity"`
		ProviderTimeout time.Duration `yaml:"provider_timeout"`
	} `yaml:"pipeline"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.ListenAddr = ":8080"
	cfg.Store.Backend = "memory"
	cfg.Store.SQLitePath = "copilot.db"
	cfg.Store.RedisAddr = "localhost:6379"
	cfg.Pipeline.MaxAttempts = 3
	cfg.Pipeline.WorkerCount = 4
	cfg.Pipeline.QueueCapacity = 1024
	cfg.Metrics.Enabled = true
	cfg.Log.Level = "info"
	return cfg
}

// Load reads a YAML config file. Fields missing from the file keep their
// defaults. An empty path returns Default() unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("pipeline.worker_count must be at least 1, got %d", c.Pipeline.WorkerCount)
	}
	if c.Pipeline.QueueCapacity < 1 {
		return fmt.Errorf("pipeline.queue_capacity must be at least 1, got %d", c.Pipeline.QueueCapacity)
	}
	return nil
}
