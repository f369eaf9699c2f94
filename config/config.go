// Package config loads and validates the pullgov configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Version  string         `yaml:"version"`
	Services ServicesConfig `yaml:"services"`
	Approval ApprovalConfig `yaml:"approval,omitempty"`
	Audit    AuditConfig    `yaml:"audit,omitempty"`
	Pull     PullConfig     `yaml:"pull,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// ServicesConfig holds the collaborating service endpoints
type ServicesConfig struct {
	ApprovalURL string        `yaml:"approval_url"`
	AuditURL    string        `yaml:"audit_url"`
	RegistryURL string        `yaml:"registry_url"`
	SnapshotURL string        `yaml:"snapshot_url"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// ApprovalConfig tunes the approval workflow
type ApprovalConfig struct {
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// AuditConfig tunes the local audit spool and its replay loop
type AuditConfig struct {
	SpoolPath      string        `yaml:"spool_path,omitempty"`
	SpoolCapacity  int           `yaml:"spool_capacity,omitempty"`
	ReplayInterval time.Duration `yaml:"replay_interval,omitempty"`
	ReplayRate     float64       `yaml:"replay_rate,omitempty"`
}

// PullConfig tunes pull execution
type PullConfig struct {
	ExecutionTimeout time.Duration `yaml:"execution_timeout,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Services: ServicesConfig{
			Timeout: 10 * time.Second,
		},
		Approval: ApprovalConfig{
			TTL: 24 * time.Hour,
		},
		Audit: AuditConfig{
			SpoolCapacity:  100,
			ReplayInterval: 30 * time.Second,
			ReplayRate:     5,
		},
		Pull: PullConfig{
			ExecutionTimeout: 2 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// LoadConfig loads configuration from file. Fields left unset in the file
// take their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Services.ApprovalURL == "" {
		return fmt.Errorf("services.approval_url is required")
	}
	if c.Services.AuditURL == "" {
		return fmt.Errorf("services.audit_url is required")
	}
	if c.Services.RegistryURL == "" {
		return fmt.Errorf("services.registry_url is required")
	}
	if c.Services.SnapshotURL == "" {
		return fmt.Errorf("services.snapshot_url is required")
	}
	if c.Audit.SpoolCapacity < 0 {
		return fmt.Errorf("audit.spool_capacity must not be negative")
	}
	if c.Audit.ReplayRate < 0 {
		return fmt.Errorf("audit.replay_rate must not be negative")
	}
	return nil
}
