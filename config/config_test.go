package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "pullgov-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	content := `
version: "1.0"

services:
  approval_url: http://approvals.internal
  audit_url: http://audit.internal
  registry_url: http://registry.internal
  snapshot_url: http://snapshots.internal
  timeout: 5s

approval:
  ttl: 12h

audit:
  spool_path: /var/lib/pullgov/spool.db
  spool_capacity: 200
  replay_interval: 10s

metrics:
  enabled: true
  addr: ":9191"
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Services.ApprovalURL != "http://approvals.internal" {
		t.Errorf("ApprovalURL = %v", cfg.Services.ApprovalURL)
	}
	if cfg.Services.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Services.Timeout)
	}
	if cfg.Approval.TTL != 12*time.Hour {
		t.Errorf("TTL = %v, want 12h", cfg.Approval.TTL)
	}
	if cfg.Audit.SpoolCapacity != 200 {
		t.Errorf("SpoolCapacity = %v, want 200", cfg.Audit.SpoolCapacity)
	}
	if cfg.Audit.SpoolPath != "/var/lib/pullgov/spool.db" {
		t.Errorf("SpoolPath = %v", cfg.Audit.SpoolPath)
	}
	if cfg.Metrics.Addr != ":9191" {
		t.Errorf("Metrics.Addr = %v", cfg.Metrics.Addr)
	}
}

func TestLoadConfig_DefaultsFillUnsetFields(t *testing.T) {
	content := `
version: "1.0"
services:
  approval_url: http://approvals.internal
  audit_url: http://audit.internal
  registry_url: http://registry.internal
  snapshot_url: http://snapshots.internal
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Approval.TTL != 24*time.Hour {
		t.Errorf("TTL = %v, want default 24h", cfg.Approval.TTL)
	}
	if cfg.Audit.SpoolCapacity != 100 {
		t.Errorf("SpoolCapacity = %v, want default 100", cfg.Audit.SpoolCapacity)
	}
	if cfg.Pull.ExecutionTimeout != 2*time.Minute {
		t.Errorf("ExecutionTimeout = %v, want default 2m", cfg.Pull.ExecutionTimeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Version: "1.0",
			Services: ServicesConfig{
				ApprovalURL: "http://a",
				AuditURL:    "http://b",
				RegistryURL: "http://c",
				SnapshotURL: "http://d",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantErr: true,
		},
		{
			name:    "missing approval url",
			mutate:  func(c *Config) { c.Services.ApprovalURL = "" },
			wantErr: true,
		},
		{
			name:    "missing audit url",
			mutate:  func(c *Config) { c.Services.AuditURL = "" },
			wantErr: true,
		},
		{
			name:    "missing registry url",
			mutate:  func(c *Config) { c.Services.RegistryURL = "" },
			wantErr: true,
		},
		{
			name:    "missing snapshot url",
			mutate:  func(c *Config) { c.Services.SnapshotURL = "" },
			wantErr: true,
		},
		{
			name:    "negative spool capacity",
			mutate:  func(c *Config) { c.Audit.SpoolCapacity = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
