package session

import (
	"fmt"
	"time"
)

// Config holds session journaling configuration from YAML.
type Config struct {
	// Store specifies the storage backend type.
	// Options: "none", "file", "redis"
	// Default: "file"
	Store string `yaml:"store"`

	// BaseDir is the base directory for file-based storage.
	// Default: ~/.agora/sessions
	BaseDir string `yaml:"base_dir"`

	// Redis contains Redis backend settings, used when Store is "redis".
	Redis RedisSettings `yaml:"redis,omitempty"`
}

// RedisSettings holds Redis-specific journal settings.
type RedisSettings struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Store:   "file",
		BaseDir: "",
		Redis: RedisSettings{
			Addr:   "localhost:6379",
			Prefix: "agora:session:",
		},
	}
}

// NewBackend builds the storage backend the configuration selects.
func NewBackend(cfg Config) (StorageBackend, error) {
	switch cfg.Store {
	case "", "file":
		return NewFileBackend(cfg.BaseDir)
	case "redis":
		return NewRedisBackend(RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Prefix:     cfg.Redis.Prefix,
			SessionTTL: cfg.Redis.SessionTTL,
		})
	case "none":
		return NewNopBackend(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q (want none, file, or redis)", cfg.Store)
	}
}
