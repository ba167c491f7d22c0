package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Listen  ListenConfig  `json:"listen" yaml:"listen" envPrefix:"LISTEN_"`
	Storage StorageConfig `json:"storage" yaml:"storage" envPrefix:"STORAGE_"`
	Admin   AdminConfig   `json:"admin" yaml:"admin" envPrefix:"ADMIN_"`
	Log     LogConfig     `json:"log" yaml:"log" envPrefix:"LOG_"`
}

// ListenConfig configures the wire protocol listener.
type ListenConfig struct {
	Addr           string `json:"addr" yaml:"addr" env:"ADDR"`
	Workers        int    `json:"workers" yaml:"workers" env:"WORKERS"`
	ReadTimeoutMs  int    `json:"readTimeoutMs" yaml:"readTimeoutMs" env:"READ_TIMEOUT_MS"`
	WriteTimeoutMs int    `json:"writeTimeoutMs" yaml:"writeTimeoutMs" env:"WRITE_TIMEOUT_MS"`
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	Backend             string `json:"backend" yaml:"backend" env:"BACKEND"`
	DataDir             string `json:"dataDir" yaml:"dataDir" env:"DATA_DIR"`
	Fsync               string `json:"fsync" yaml:"fsync" env:"FSYNC"`
	FsyncIntervalMs     int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs" env:"FSYNC_INTERVAL_MS"`
	IndexSyncIntervalMs int    `json:"indexSyncIntervalMs" yaml:"indexSyncIntervalMs" env:"INDEX_SYNC_INTERVAL_MS"`
}

// AdminConfig holds the admin listener addresses; an empty address disables it.
type AdminConfig struct {
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr" env:"HTTP_ADDR"`
	GRPCAddr string `json:"grpcAddr" yaml:"grpcAddr" env:"GRPC_ADDR"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LEVEL"`
	Format string `json:"format" yaml:"format" env:"FORMAT"`
}

// DefaultAddr is the wire protocol listen address used when none is configured.
const DefaultAddr = "localhost:4455"

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Listen: ListenConfig{
			Addr:           DefaultAddr,
			Workers:        goruntime.NumCPU(),
			ReadTimeoutMs:  30000,
			WriteTimeoutMs: 30000,
		},
		Storage: StorageConfig{
			Backend:             "disk",
			Fsync:               "always",
			FsyncIntervalMs:     5,
			IndexSyncIntervalMs: 1000,
		},
		Admin: AdminConfig{
			HTTPAddr: "localhost:8080",
			GRPCAddr: "localhost:50051",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "memory", "disk", "pebble":
	default:
		return fmt.Errorf("config: storage.backend %q; use memory|disk|pebble", c.Storage.Backend)
	}
	switch strings.ToLower(c.Storage.Fsync) {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: storage.fsync %q; use always|interval|never", c.Storage.Fsync)
	}
	if c.Listen.Addr == "" {
		return errors.New("config: listen.addr is required")
	}
	if c.Listen.Workers < 0 || c.Listen.ReadTimeoutMs < 0 || c.Listen.WriteTimeoutMs < 0 {
		return errors.New("config: listen workers and timeouts must not be negative")
	}
	if c.Storage.FsyncIntervalMs < 0 || c.Storage.IndexSyncIntervalMs < 0 {
		return errors.New("config: storage intervals must not be negative")
	}
	return nil
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// ReadTimeout returns listen.readTimeoutMs as a duration.
func (c ListenConfig) ReadTimeout() time.Duration { return millis(c.ReadTimeoutMs) }

// WriteTimeout returns listen.writeTimeoutMs as a duration.
func (c ListenConfig) WriteTimeout() time.Duration { return millis(c.WriteTimeoutMs) }

// FsyncInterval returns storage.fsyncIntervalMs as a duration.
func (c StorageConfig) FsyncInterval() time.Duration { return millis(c.FsyncIntervalMs) }

// IndexSyncInterval returns storage.indexSyncIntervalMs as a duration.
func (c StorageConfig) IndexSyncInterval() time.Duration { return millis(c.IndexSyncIntervalMs) }
