package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen.Addr != "localhost:4455" {
		t.Fatalf("default addr %q", cfg.Listen.Addr)
	}
	if cfg.Listen.Workers <= 0 {
		t.Fatalf("default workers should follow CPU count")
	}
	if cfg.Storage.Backend != "disk" || cfg.Storage.IndexSyncIntervalMs != 1000 {
		t.Fatalf("storage defaults %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "eventual.json")
	data := []byte(`{"listen":{"addr":":9000","workers":2},"storage":{"backend":"memory"}}`)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen.Addr != ":9000" || cfg.Listen.Workers != 2 || cfg.Storage.Backend != "memory" {
		t.Fatalf("loaded %+v", cfg)
	}
	if cfg.Storage.Fsync != "always" || cfg.Log.Level != "info" {
		t.Fatalf("unset fields should keep defaults: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "eventual.yaml")
	data := []byte("listen:\n  addr: 0.0.0.0:4455\n  readTimeoutMs: 500\nstorage:\n  backend: pebble\n  fsync: interval\nlog:\n  format: json\n")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen.Addr != "0.0.0.0:4455" || cfg.Listen.ReadTimeout().Milliseconds() != 500 {
		t.Fatalf("listen %+v", cfg.Listen)
	}
	if cfg.Storage.Backend != "pebble" || cfg.Storage.Fsync != "interval" || cfg.Log.Format != "json" {
		t.Fatalf("loaded %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	file := filepath.Join(t.TempDir(), "eventual.json")
	if err := os.WriteFile(file, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("EVENTUAL_LISTEN_ADDR", ":7000")
	t.Setenv("EVENTUAL_STORAGE_BACKEND", "memory")
	t.Setenv("EVENTUAL_STORAGE_INDEX_SYNC_INTERVAL_MS", "0")
	t.Setenv("EVENTUAL_LOG_LEVEL", "debug")
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("env: %v", err)
	}
	if cfg.Listen.Addr != ":7000" || cfg.Storage.Backend != "memory" || cfg.Storage.IndexSyncIntervalMs != 0 || cfg.Log.Level != "debug" {
		t.Fatalf("env overlay %+v", cfg)
	}
	if cfg.Storage.Fsync != "always" {
		t.Fatalf("unset env var should keep value")
	}

	t.Setenv("EVENTUAL_LISTEN_WORKERS", "many")
	if err := FromEnv(&cfg); err == nil {
		t.Fatalf("expected parse error for non-numeric workers")
	}
}

func TestLoadDotEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("EVENTUAL_ADMIN_HTTP_ADDR=:9999\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("EVENTUAL_ADMIN_HTTP_ADDR", "")
	os.Unsetenv("EVENTUAL_ADMIN_HTTP_ADDR")
	if err := LoadDotEnv(file); err != nil {
		t.Fatalf("dotenv: %v", err)
	}
	cfg := Default()
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("env: %v", err)
	}
	if cfg.Admin.HTTPAddr != ":9999" {
		t.Fatalf("dotenv value not applied: %q", cfg.Admin.HTTPAddr)
	}
}

func TestLoadDotEnvMissingFiles(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for a named dotenv file that does not exist")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("implicit .env should be optional: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"fsync", func(c *Config) { c.Storage.Fsync = "sometimes" }},
		{"addr", func(c *Config) { c.Listen.Addr = "" }},
		{"workers", func(c *Config) { c.Listen.Workers = -1 }},
		{"interval", func(c *Config) { c.Storage.IndexSyncIntervalMs = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
