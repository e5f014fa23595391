package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MATCHEVAL_PORT", "9090")
	t.Setenv("MATCHEVAL_LOG_LEVEL", "debug")
	t.Setenv("MATCHEVAL_PRECISION_LEVEL", "0.9")
	t.Setenv("MATCHEVAL_SYMMETRIC_JOIN", "true")
	t.Setenv("MATCHEVAL_TRUST_PROXY", "true")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Evaluation.PrecisionLevel != 0.9 {
		t.Errorf("Evaluation.PrecisionLevel = %v, want 0.9", cfg.Evaluation.PrecisionLevel)
	}

	if !cfg.Evaluation.SymmetricJoin {
		t.Error("Evaluation.SymmetricJoin = false, want true")
	}

	if !cfg.Security.TrustProxy {
		t.Error("Security.TrustProxy = false, want true")
	}

	// Untouched sections keep their defaults
	if cfg.Evaluation.CategoryColumn != "cat3_grouped" {
		t.Errorf("Evaluation.CategoryColumn = %s, want cat3_grouped", cfg.Evaluation.CategoryColumn)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
evaluation:
  precision_level: 0.5
  category_column: cat2
  workers: 8
  nan_policy: drop
grouping:
  strategy: shared-set
history:
  type: redis
  redis_url: "redis://cache:6379/2"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}

	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if cfg.Evaluation.PrecisionLevel != 0.5 {
		t.Errorf("Evaluation.PrecisionLevel = %v, want 0.5", cfg.Evaluation.PrecisionLevel)
	}

	if cfg.Evaluation.CategoryColumn != "cat2" {
		t.Errorf("Evaluation.CategoryColumn = %s, want cat2", cfg.Evaluation.CategoryColumn)
	}

	if cfg.Evaluation.Workers != 8 {
		t.Errorf("Evaluation.Workers = %d, want 8", cfg.Evaluation.Workers)
	}

	if cfg.Evaluation.NaNPolicy != "drop" {
		t.Errorf("Evaluation.NaNPolicy = %s, want drop", cfg.Evaluation.NaNPolicy)
	}

	if cfg.Grouping.Strategy != "shared-set" {
		t.Errorf("Grouping.Strategy = %s, want shared-set", cfg.Grouping.Strategy)
	}

	// Not in the file, default survives
	if cfg.Grouping.ProgressEvery != 100000 {
		t.Errorf("Grouping.ProgressEvery = %d, want 100000", cfg.Grouping.ProgressEvery)
	}

	if cfg.History.RedisURL != "redis://cache:6379/2" {
		t.Errorf("History.RedisURL = %s, want redis://cache:6379/2", cfg.History.RedisURL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("port: 7000\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("MATCHEVAL_PORT", "7001")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 7001 {
		t.Errorf("Port = %d, want 7001", cfg.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("MATCHEVAL_LOG_FORMAT", "xml")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "log format") {
		t.Errorf("error = %v, want mention of log format", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "precision level above one",
			modify: func(c *Config) {
				c.Evaluation.PrecisionLevel = 1.5
			},
			wantErr: true,
		},
		{
			name: "precision level bounds inclusive",
			modify: func(c *Config) {
				c.Evaluation.PrecisionLevel = 1
			},
			wantErr: false,
		},
		{
			name: "empty category column",
			modify: func(c *Config) {
				c.Evaluation.CategoryColumn = ""
			},
			wantErr: true,
		},
		{
			name: "zero workers",
			modify: func(c *Config) {
				c.Evaluation.Workers = 0
			},
			wantErr: true,
		},
		{
			name: "invalid nan policy",
			modify: func(c *Config) {
				c.Evaluation.NaNPolicy = "keep"
			},
			wantErr: true,
		},
		{
			name: "invalid grouping strategy",
			modify: func(c *Config) {
				c.Grouping.Strategy = "graph"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid history type",
			modify: func(c *Config) {
				c.History.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = " "
			},
			wantErr: true,
		},
		{
			name: "kafka with brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = "localhost:9092"
			},
			wantErr: false,
		},
		{
			name: "negative rate limit",
			modify: func(c *Config) {
				c.Security.RateLimit = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{
		Host: "localhost",
		Port: 8080,
	}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}
