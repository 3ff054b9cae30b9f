package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
pipeline:
  workers: 4
  queue_depth: 128
  max_auxiliary_urls: 2
fetch:
  timeout_seconds: 45
  user_agent: outreach-agent
generator:
  model: gpt-4o
  timeout_seconds: 30
  temperature: 0.5
  max_tokens: 800
retention:
  ttl_minutes: 15
  sweep_interval_seconds: 60
storage:
  provider: local
  base_dir: /tmp/snapshots
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.MaxAuxiliaryURLs != 2 {
		t.Fatalf("expected pipeline overrides to apply: %+v", cfg.Pipeline)
	}
	if cfg.Generator.Model != "gpt-4o" || cfg.Generator.Temperature != 0.5 {
		t.Fatalf("expected generator overrides to apply: %+v", cfg.Generator)
	}
	if cfg.Storage.Provider != "local" || cfg.Storage.BaseDir != "/tmp/snapshots" {
		t.Fatalf("expected storage overrides to apply: %+v", cfg.Storage)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.RetentionTTL(); got != 15*time.Minute {
		t.Fatalf("expected retention ttl 15m, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Pipeline.Workers != 1 {
		t.Fatalf("expected default worker count 1, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Fetch.TimeoutSeconds != 30 {
		t.Fatalf("expected default fetch timeout 30s, got %d", cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Generator.MaxTokens != 1000 {
		t.Fatalf("expected default max tokens 1000, got %d", cfg.Generator.MaxTokens)
	}
	if cfg.Storage.Provider != "noop" {
		t.Fatalf("expected default storage provider noop, got %s", cfg.Storage.Provider)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Pipeline.Workers = 0 },
			wantErr: "pipeline.workers",
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(c *Config) { c.Fetch.TimeoutSeconds = 0 },
			wantErr: "fetch.timeout_seconds",
		},
		{
			name:    "auth without key",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: "auth.api_key",
		},
		{
			name:    "unknown storage provider",
			mutate:  func(c *Config) { c.Storage.Provider = "s3" },
			wantErr: "unknown storage provider",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *Config) { c.Storage.Provider = "gcs" },
			wantErr: "storage.gcs_bucket",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.mutate(&cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
