// Package config loads and validates the searchd configuration.
//
// Configuration is resolved in priority order:
//  1. Environment variables (SEARCHD_*) - highest priority
//  2. Config file (yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete searchd configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// EngineConfig configures the connection to the remote search engine.
type EngineConfig struct {
	// Network is the dial network: "tcp" or "unix".
	Network string `yaml:"network" json:"network"`

	// Address is the engine address (host:port for tcp, path for unix).
	Address string `yaml:"address" json:"address"`

	// DialTimeout bounds connection establishment, not searches.
	// Searches have no server-side deadline; cancellation is the
	// caller's responsibility.
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	// Addr is the listen address for the HTTP API.
	Addr string `yaml:"addr" json:"addr"`
}

// StoreConfig configures the repository metadata store.
type StoreConfig struct {
	// DBPath is the path to the sqlite database file.
	DBPath string `yaml:"db_path" json:"db_path"`

	// PermissionSyncEnabled enables permission-filtered repository
	// scoping. When disabled, searches are unrestricted.
	PermissionSyncEnabled bool `yaml:"permission_sync_enabled" json:"permission_sync_enabled"`
}

// SearchConfig configures search defaults applied when the caller omits them.
type SearchConfig struct {
	// DefaultMatches is the default display cap for matches.
	DefaultMatches int `yaml:"default_matches" json:"default_matches"`

	// DefaultContextLines is the default number of context lines.
	DefaultContextLines int `yaml:"default_context_lines" json:"default_context_lines"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			Network:     "tcp",
			Address:     "localhost:6070",
			DialTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr: "localhost:3070",
		},
		Store: StoreConfig{
			DBPath:                defaultDBPath(),
			PermissionSyncEnabled: false,
		},
		Search: SearchConfig{
			DefaultMatches:      10000,
			DefaultContextLines: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (optional) and applies environment
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c Config) Validate() error {
	switch c.Engine.Network {
	case "tcp", "unix":
	default:
		return fmt.Errorf("invalid engine network %q: must be tcp or unix", c.Engine.Network)
	}
	if c.Engine.Address == "" {
		return fmt.Errorf("engine address is required")
	}
	if c.Search.DefaultMatches <= 0 {
		return fmt.Errorf("default_matches must be positive, got %d", c.Search.DefaultMatches)
	}
	if c.Search.DefaultContextLines < 0 {
		return fmt.Errorf("default_context_lines must be non-negative, got %d", c.Search.DefaultContextLines)
	}
	return nil
}

// applyEnvOverrides applies SEARCHD_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEARCHD_ENGINE_ADDRESS"); v != "" {
		cfg.Engine.Address = v
	}
	if v := os.Getenv("SEARCHD_ENGINE_NETWORK"); v != "" {
		cfg.Engine.Network = v
	}
	if v := os.Getenv("SEARCHD_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SEARCHD_DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}
	if v := os.Getenv("SEARCHD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SEARCHD_PERMISSION_SYNC_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Store.PermissionSyncEnabled = enabled
		}
	}
}

// defaultDBPath returns the default sqlite database location (~/.searchd/repos.db).
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".searchd", "repos.db")
	}
	return filepath.Join(home, ".searchd", "repos.db")
}
