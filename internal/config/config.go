// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StreamConfig struct {
	// PollInterval is how often an open stream re-reads the progress store.
	// Keep this close to the cadence of real job updates; polling much
	// faster only re-reads unchanged state.
	PollInterval      time.Duration `yaml:"poll_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

type JobsConfig struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	PipelinePoll    time.Duration `yaml:"pipeline_poll"`
	BaselinePercent float64       `yaml:"baseline_percent"` // progress reserved for pre-generation setup
}

type EvictionConfig struct {
	TTL        time.Duration `yaml:"ttl"`         // how long terminal entries linger
	SweepEvery time.Duration `yaml:"sweep_every"` // sweep cadence
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Stream   StreamConfig   `yaml:"stream"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Eviction EvictionConfig `yaml:"eviction"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, errors.New("server.port must be a valid TCP port")
	}
	if cfg.Jobs.BaselinePercent < 0 || cfg.Jobs.BaselinePercent >= 100 {
		return nil, errors.New("jobs.baseline_percent must be in [0,100)")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// Default returns a config usable without a yaml file (dev and tests).
func Default() *Config {
	cfg := &Config{Server: ServerConfig{Port: 8080}}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Stream.PollInterval <= 0 {
		cfg.Stream.PollInterval = 2 * time.Second
	}
	if cfg.Stream.HeartbeatInterval <= 0 {
		cfg.Stream.HeartbeatInterval = 15 * time.Second
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.QueueSize <= 0 {
		cfg.Jobs.QueueSize = 16
	}
	if cfg.Jobs.PipelinePoll <= 0 {
		cfg.Jobs.PipelinePoll = time.Second
	}
	if cfg.Jobs.BaselinePercent == 0 {
		cfg.Jobs.BaselinePercent = 40
	}
	if cfg.Eviction.TTL <= 0 {
		cfg.Eviction.TTL = 10 * time.Minute
	}
	if cfg.Eviction.SweepEvery <= 0 {
		cfg.Eviction.SweepEvery = time.Minute
	}
}
