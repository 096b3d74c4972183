package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.DB.Driver != "postgres" || cfg.PageSize != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Mirror.CASRetries != 5 || cfg.Mirror.MissingPolicy != "repair" {
		t.Fatalf("mirror defaults: %+v", cfg.Mirror)
	}
	if cfg.Metrics.Enabled || cfg.Tracing.Enabled {
		t.Fatalf("metrics and tracing should be off by default")
	}
}

func TestLoadConfigLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	file := strings.Join([]string{
		"port: \"9000\"",
		"page_size: 10",
		"db:",
		"  driver: sqlite",
		"  sqlite_path: /tmp/fleet.db",
		"mirror:",
		"  missing_policy: ignore",
		"redis:",
		"  addr: localhost:6379",
		"  lock_ttl: 2s",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("env should win over file: port=%s", cfg.Port)
	}
	if cfg.PageSize != 10 || cfg.DB.Driver != "sqlite" || cfg.DB.SQLitePath != "/tmp/fleet.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DB.Host != "localhost" {
		t.Fatalf("defaults should survive a partial file: host=%q", cfg.DB.Host)
	}
	if cfg.Mirror.MissingPolicy != "ignore" || cfg.Redis.LockTTL != 2*time.Second {
		t.Fatalf("nested file values: %+v %+v", cfg.Mirror, cfg.Redis)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Tracing.Headers["x-api-key"] != "abc" {
		t.Fatalf("headers: %v", cfg.Tracing.Headers)
	}
}

func TestLoadConfigRejectsUnknownFileKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte("prot: 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := LoadConfig(nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"driver":      func(c *Config) { c.DB.Driver = "mysql" },
		"page size":   func(c *Config) { c.PageSize = 0 },
		"cas retries": func(c *Config) { c.Mirror.CASRetries = -1 },
		"policy":      func(c *Config) { c.Mirror.MissingPolicy = "insert" },
		"sample":      func(c *Config) { c.Tracing.SampleRatio = 2 },
		"lock ttl": func(c *Config) {
			c.Redis.Addr = "localhost:6379"
			c.Redis.LockTTL = 0
		},
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
