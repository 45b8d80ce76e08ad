package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"docgen-progress/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
  shutdown_timeout: 5s
log:
  level: debug
  format: console
stream:
  poll_interval: 500ms
  heartbeat_interval: 20s
jobs:
  workers: 2
  queue_size: 8
  pipeline_poll: 250ms
  baseline_percent: 30
eviction:
  ttl: 5m
  sweep_every: 30s
`)
		cfg, err := config.LoadConfig(path, true)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("port = %d", cfg.Server.Port)
		}
		if cfg.Stream.PollInterval != 500*time.Millisecond {
			t.Errorf("poll interval = %v", cfg.Stream.PollInterval)
		}
		if cfg.Jobs.BaselinePercent != 30 {
			t.Errorf("baseline = %v", cfg.Jobs.BaselinePercent)
		}
		if cfg.Eviction.TTL != 5*time.Minute {
			t.Errorf("ttl = %v", cfg.Eviction.TTL)
		}
		if !cfg.Runtime.Dev {
			t.Error("dev flag not carried into runtime config")
		}
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 8081\n")
		cfg, err := config.LoadConfig(path, false)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Stream.PollInterval != 2*time.Second {
			t.Errorf("poll interval = %v, want 2s default", cfg.Stream.PollInterval)
		}
		if cfg.Jobs.Workers != 4 {
			t.Errorf("workers = %d, want 4 default", cfg.Jobs.Workers)
		}
		if cfg.Jobs.BaselinePercent != 40 {
			t.Errorf("baseline = %v, want 40 default", cfg.Jobs.BaselinePercent)
		}
	})

	t.Run("invalid port rejected", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 70000\n")
		if _, err := config.LoadConfig(path, false); err == nil {
			t.Error("expected an error for an out-of-range port")
		}
	})

	t.Run("invalid baseline rejected", func(t *testing.T) {
		path := writeConfig(t, "jobs:\n  baseline_percent: 100\n")
		if _, err := config.LoadConfig(path, false); err == nil {
			t.Error("expected an error for baseline_percent of 100")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Error("expected an error for a missing file")
		}
	})
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Stream.HeartbeatInterval != 15*time.Second {
		t.Errorf("heartbeat = %v", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Eviction.TTL != 10*time.Minute {
		t.Errorf("ttl = %v", cfg.Eviction.TTL)
	}
}
