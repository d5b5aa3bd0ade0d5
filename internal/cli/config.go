package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nestgraph/nestgraph/pkg/document"
	"github.com/nestgraph/nestgraph/pkg/errors"
)

// Storage backend names accepted in the config file.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageMongo  = "mongo"
	StorageRedis  = "redis"
)

// Config is the TOML configuration for the serve command.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig tunes the HTTP server and its sessions.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	MaxSessions   int    `toml:"max_sessions"`
	SessionTTLMin int    `toml:"session_ttl_minutes"`
	HistoryLimit  int    `toml:"history_limit"`
	QuietPeriodMS int    `toml:"quiet_period_ms"`
}

// StorageConfig selects and configures the document store backend.
type StorageConfig struct {
	Backend string `toml:"backend"`

	// File backend
	Dir string `toml:"dir"`

	// Mongo backend
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`

	// Redis backend
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			MaxSessions:   100,
			SessionTTLMin: 30,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
		},
	}
}

// LoadConfig reads a TOML config file. An empty path tries the default
// location (~/.config/nestgraph/config.toml); a missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return cfg, errors.New(errors.ErrCodeInvalidConfig, "config file %s does not exist", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return cfg, nil
}

// SessionTTL returns the configured TTL as a duration.
func (c ServerConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// QuietPeriod returns the configured capture debounce as a duration.
func (c ServerConfig) QuietPeriod() time.Duration {
	return time.Duration(c.QuietPeriodMS) * time.Millisecond
}

// openDocumentStore builds the document store named by the config.
func openDocumentStore(ctx context.Context, cfg StorageConfig) (document.Store, error) {
	switch cfg.Backend {
	case StorageMemory:
		return document.NewMemoryStore(), nil
	case StorageFile, "":
		dir := cfg.Dir
		if dir == "" {
			base, err := dataDir()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolve data directory")
			}
			dir = filepath.Join(base, "documents")
		}
		return document.NewFileStore(dir)
	case StorageMongo:
		return document.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case StorageRedis:
		return document.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown storage backend: %s", cfg.Backend)
	}
}
