// Package config loads the pciespeed YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultFilter      = "::0300"
	DefaultSysfsRoot   = "/sys"
	DefaultAttribution = "GPU Speed Check"
	DefaultBackend     = "log"
	DefaultExpiration  = 10 * time.Second
	DefaultCron        = "@every 15m"
	DefaultAgentPort   = 2223
)

// Config is the pciespeed configuration
type Config struct {
	Filter      string `yaml:"filter"`
	SysfsRoot   string `yaml:"sysfs_root"`
	Force       bool   `yaml:"force"`
	Strict      bool   `yaml:"strict"`
	Parallelism int    `yaml:"parallelism"`
	Database    string `yaml:"database"`

	Notify NotifyConfig `yaml:"notify"`
	Watch  WatchConfig  `yaml:"watch"`
	Agent  AgentConfig  `yaml:"agent"`
}

// NotifyConfig selects the notification backend
type NotifyConfig struct {
	Backend     string        `yaml:"backend"`
	Attribution string        `yaml:"attribution"`
	Expiration  time.Duration `yaml:"expiration"`
}

// WatchConfig configures periodic scans
type WatchConfig struct {
	Cron string `yaml:"cron"`
}

// AgentConfig configures the HTTP agent
type AgentConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Filter:      DefaultFilter,
		SysfsRoot:   DefaultSysfsRoot,
		Parallelism: 1,
		Database:    DefaultDBPath(),
		Notify: NotifyConfig{
			Backend:     DefaultBackend,
			Attribution: DefaultAttribution,
			Expiration:  DefaultExpiration,
		},
		Watch: WatchConfig{Cron: DefaultCron},
		Agent: AgentConfig{Port: DefaultAgentPort},
	}
}

// DefaultDir returns ~/.pciespeed
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pciespeed"
	}
	return filepath.Join(home, ".pciespeed")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultDBPath returns the history database path, honoring PCIESPEED_DB_PATH.
func DefaultDBPath() string {
	if path := os.Getenv("PCIESPEED_DB_PATH"); path != "" {
		return path
	}
	return filepath.Join(DefaultDir(), "pciespeed.db")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if c.Notify.Expiration < 0 {
		return fmt.Errorf("notify expiration must not be negative")
	}
	if c.Agent.Port < 0 || c.Agent.Port > 65535 {
		return fmt.Errorf("invalid agent port: %d", c.Agent.Port)
	}
	if (c.Agent.CertFile == "") != (c.Agent.KeyFile == "") {
		return fmt.Errorf("agent cert_file and key_file must be set together")
	}
	if c.Watch.Cron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Watch.Cron); err != nil {
			return fmt.Errorf("invalid watch cron %q: %w", c.Watch.Cron, err)
		}
	}
	return nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
