// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/matcheval/internal/grouping"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"MATCHEVAL_HOST" yaml:"host"`
	Port int    `envconfig:"MATCHEVAL_PORT" yaml:"port"`

	// Metric configuration
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Grouping configuration
	Grouping GroupingConfig `yaml:"grouping"`

	// Run history configuration
	History HistoryConfig `yaml:"history"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// EvaluationConfig holds PR-AUC settings.
type EvaluationConfig struct {
	PrecisionLevel float64 `envconfig:"MATCHEVAL_PRECISION_LEVEL" yaml:"precision_level"`
	CategoryColumn string  `envconfig:"MATCHEVAL_CATEGORY_COLUMN" yaml:"category_column"`
	Workers        int     `envconfig:"MATCHEVAL_WORKERS" yaml:"workers"`
	NaNPolicy      string  `envconfig:"MATCHEVAL_NAN_POLICY" yaml:"nan_policy"`
	SymmetricJoin  bool    `envconfig:"MATCHEVAL_SYMMETRIC_JOIN" yaml:"symmetric_join"`
}

// GroupingConfig holds pair grouping settings.
type GroupingConfig struct {
	Strategy      string `envconfig:"MATCHEVAL_GROUPING_STRATEGY" yaml:"strategy"`
	ProgressEvery int    `envconfig:"MATCHEVAL_GROUPING_PROGRESS_EVERY" yaml:"progress_every"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Type     string `envconfig:"MATCHEVAL_HISTORY_TYPE" yaml:"type"`
	RedisURL string `envconfig:"MATCHEVAL_REDIS_URL" yaml:"redis_url"`
	TTLHours int    `envconfig:"MATCHEVAL_HISTORY_TTL_HOURS" yaml:"ttl_hours"` // 0 = no expiry
	MaxRuns  int    `envconfig:"MATCHEVAL_HISTORY_MAX_RUNS" yaml:"max_runs"`   // memory only, 0 = unbounded
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"MATCHEVAL_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"MATCHEVAL_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"MATCHEVAL_KAFKA_GROUP" yaml:"kafka_group"`
	KafkaVersion string `envconfig:"MATCHEVAL_KAFKA_VERSION" yaml:"kafka_version"`
	EventLog     string `envconfig:"MATCHEVAL_EVENT_LOG" yaml:"event_log"` // JSONL journal, empty = off
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"MATCHEVAL_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"MATCHEVAL_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit int `envconfig:"MATCHEVAL_RATE_LIMIT" yaml:"rate_limit"` // requests/sec per client, 0 = disabled
	RateBurst int `envconfig:"MATCHEVAL_RATE_BURST" yaml:"rate_burst"`

	// TrustProxy keys rate limiting on X-Forwarded-For / X-Real-IP.
	// Leave off unless a proxy in front overwrites those headers.
	TrustProxy bool `envconfig:"MATCHEVAL_TRUST_PROXY" yaml:"trust_proxy"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// YAML overrides defaults
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Environment wins over everything
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// Default returns a configuration holding only the defaults.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Evaluation = EvaluationConfig{
		PrecisionLevel: 0.75,
		CategoryColumn: "cat3_grouped",
		Workers:        4,
		NaNPolicy:      "zero",
	}

	cfg.Grouping = GroupingConfig{
		Strategy:      "disjoint-set",
		ProgressEvery: 100000,
	}

	cfg.History = HistoryConfig{
		Type:     "memory",
		RedisURL: "redis://localhost:6379",
		TTLHours: 24 * 30,
		MaxRuns:  1000,
	}

	cfg.Bus = BusConfig{
		Type:         "memory",
		KafkaGroup:   "matcheval",
		KafkaVersion: "2.8.0",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit: 0,
		RateBurst: 20,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Evaluation.PrecisionLevel < 0 || c.Evaluation.PrecisionLevel > 1 {
		errs = append(errs, "precision_level must be between 0 and 1")
	}

	if c.Evaluation.CategoryColumn == "" {
		errs = append(errs, "category_column must not be empty")
	}

	if c.Evaluation.Workers < 1 {
		errs = append(errs, "workers must be positive")
	}

	validNaN := map[string]bool{"zero": true, "drop": true}
	if !validNaN[c.Evaluation.NaNPolicy] {
		errs = append(errs, fmt.Sprintf("invalid nan_policy: %s (must be zero or drop)", c.Evaluation.NaNPolicy))
	}

	if !slices.Contains(grouping.Strategies(), grouping.Strategy(c.Grouping.Strategy)) {
		errs = append(errs, fmt.Sprintf("invalid grouping strategy: %s (must be one of %s)", c.Grouping.Strategy, grouping.StrategyNames()))
	}

	if c.Grouping.ProgressEvery < 0 {
		errs = append(errs, "progress_every must not be negative")
	}

	validHistory := map[string]bool{"memory": true, "redis": true}
	if !validHistory[c.History.Type] {
		errs = append(errs, fmt.Sprintf("invalid history type: %s (must be memory or redis)", c.History.Type))
	}

	if c.History.TTLHours < 0 {
		errs = append(errs, "ttl_hours must not be negative")
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka_brokers is required when bus type is kafka")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
