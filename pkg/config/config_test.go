package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: file
  file_root: /tmp/coassist
  redis:
    addr: localhost:6379
    db: 2
session:
  ttl: 2h
  sweep_interval: 10m
cache:
  enable: false
  ttl: 30m
retry:
  max_attempts: 6
  base_delay: 250ms
model:
  default: claude
  providers:
    claude:
      model: claude-sonnet
      api_key: sk-test
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Type != "file" || cfg.Storage.FileRoot != "/tmp/coassist" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Redis.Addr != "localhost:6379" || cfg.Storage.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Storage.Redis)
	}
	if cfg.Session.TTL != "2h" || cfg.Session.SweepInterval != "10m" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Cache.Enable == nil || *cfg.Cache.Enable {
		t.Errorf("cache.enable should be explicit false, got %+v", cfg.Cache.Enable)
	}
	if cfg.Retry.MaxAttempts != 6 || cfg.Retry.BaseDelay != "250ms" {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	p, ok := cfg.Model.Providers["claude"]
	if !ok || p.Model != "claude-sonnet" || p.APIKey != "sk-test" {
		t.Errorf("providers = %+v", cfg.Model.Providers)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfig_EnvVarAPIKey(t *testing.T) {
	t.Setenv("TEST_COASSIST_KEY", "sk-from-env")
	path := writeConfig(t, `
model:
  providers:
    claude:
      api_key: ${TEST_COASSIST_KEY}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Model.Providers["claude"].APIKey; got != "sk-from-env" {
		t.Errorf("api_key = %q, want env expansion", got)
	}
}

func TestLoadCLIConfig_FallsBackToDefault(t *testing.T) {
	t.Setenv("COASSIST_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := LoadCLIConfig()
	if err != nil {
		t.Fatalf("LoadCLIConfig: %v", err)
	}
	if cfg.Storage.Type != "auto" || cfg.Session.TTL != "3h" {
		t.Errorf("default config = %+v", cfg)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Retry.MaxAttempts != 4 || cfg.Retry.BaseDelay != "500ms" || cfg.Retry.MaxDelay != "8s" {
		t.Errorf("default retry = %+v", cfg.Retry)
	}
	if cfg.Cache.TTL != "1h" {
		t.Errorf("default cache ttl = %q", cfg.Cache.TTL)
	}
}
