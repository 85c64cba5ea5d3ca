package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"targetscope/internal/yield"
)

const appName = "targetscope"

// Source modes.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Config is the application's configuration model.
// It selects where targets and quota come from and how plans are served.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Backend  BackendConfig  `yaml:"backend"`
	Storage  StorageConfig  `yaml:"storage"`
	Capacity CapacityConfig `yaml:"capacity"`
	Planner  PlannerConfig  `yaml:"planner"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type SourceConfig struct {
	// "local" keeps targets in SQLite; "remote" talks to the backend API.
	Mode string `yaml:"mode"`
}

type BackendConfig struct {
	BaseURL string `yaml:"baseURL"`
	// If empty, read from env TARGETSCOPE_BACKEND_TOKEN
	Token         string  `yaml:"token"`
	MaxAttempts   int     `yaml:"maxAttempts"`
	BaseBackoffMS int     `yaml:"baseBackoffMs"`
	RPS           float64 `yaml:"rps"`
	Burst         int     `yaml:"burst"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

// CapacityConfig describes local capacity. PostsPerHour of 0 derives the
// total from the healthy session count.
type CapacityConfig struct {
	PostsPerHour    int `yaml:"postsPerHour"`
	HealthySessions int `yaml:"healthySessions"`
}

// Total returns the hourly posts capacity. No healthy session means none.
func (c CapacityConfig) Total() int {
	if c.HealthySessions <= 0 {
		return 0
	}
	if c.PostsPerHour > 0 {
		return c.PostsPerHour
	}
	return c.HealthySessions * yield.BaseAccountCapacity
}

type PlannerConfig struct {
	PreviewSize     int    `yaml:"previewSize"`
	RefreshInterval string `yaml:"refreshInterval"`
}

// RefreshDuration parses RefreshInterval, defaulting to one minute.
func (p PlannerConfig) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(p.RefreshInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	// If empty, read from env METRICS_ADDR
	Addr string `yaml:"addr"`
}

// DefaultPath is the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, appName+".yaml")
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Source:   SourceConfig{Mode: SourceLocal},
		Backend:  BackendConfig{BaseURL: "http://localhost:8003", MaxAttempts: 5, BaseBackoffMS: 500, RPS: 2, Burst: 10},
		Storage:  StorageConfig{DBPath: filepath.Join(xdg.DataHome, appName, appName+".db")},
		Capacity: CapacityConfig{PostsPerHour: 1000, HealthySessions: 1},
		Planner:  PlannerConfig{PreviewSize: 6, RefreshInterval: "1m"},
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Backend.Token == "" {
		c.Backend.Token = os.Getenv("TARGETSCOPE_BACKEND_TOKEN")
	}
	if v := os.Getenv("TARGETSCOPE_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Validate checks the fields other packages rely on.
func (c Config) Validate() error {
	switch c.Source.Mode {
	case SourceLocal:
		if c.Storage.DBPath == "" {
			return errors.New("storage.dbPath is required in local mode")
		}
	case SourceRemote:
		if c.Backend.BaseURL == "" {
			return errors.New("backend.baseURL is required in remote mode")
		}
	default:
		return fmt.Errorf("source.mode must be %q or %q, got %q", SourceLocal, SourceRemote, c.Source.Mode)
	}
	if c.Planner.PreviewSize < 0 {
		return errors.New("planner.previewSize must not be negative")
	}
	return nil
}

// Load reads YAML config from path over the defaults. A missing file at
// the default path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath() {
			cfg.ResolveEnv()
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ResolveEnv()
	return cfg, cfg.Validate()
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
