// Package config provides configuration management for the graftwatch
// pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoSubjects               = errors.New("at least one subject is required")
	ErrNoEnabledSubjects        = errors.New("at least one subject must be enabled")
	ErrSubjectMissingName       = errors.New("subject name is required")
	ErrMissingSearchEndpoint    = errors.New("search.endpoint is required")
	ErrMissingAPIKeyEnv         = errors.New("search.api_key_env is required")
	ErrInvalidMaxResults        = errors.New("search.max_results must be at least 1")
	ErrInvalidRate              = errors.New("search.requests_per_second must be positive")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidOutputStore       = errors.New("output.store must be 'fs' or 's3'")
	ErrMissingBasePath          = errors.New("output.base_path is required for the fs store")
	ErrMissingBucket            = errors.New("output.bucket is required for the s3 store")
	ErrInvalidArticleStore      = errors.New("loader.store must be 'sqlite' or 'postgres'")
	ErrMissingSQLitePath        = errors.New("loader.sqlite.path is required for the sqlite store")
	ErrMissingDSNEnv            = errors.New("loader.postgres.dsn_env is required for the postgres store")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// DefaultKeywords is the corruption keyword set used when a subject does not
// define its own.
var DefaultKeywords = []string{
	"corruption",
	"bribery",
	"fraud",
	"graft",
	"embezzlement",
	"wasteful spending",
	"misuse of public funds",
	"financial misconduct",
}

// DefaultAllowedDomains is the source domain allowlist used when a subject
// does not define its own.
var DefaultAllowedDomains = []string{
	"news24.com",
	"timeslive.co.za",
	"mg.co.za",
	"iol.co.za",
	"fin24.com",
	"dailymaverick.com",
}

// DefaultQueryTemplate composes one provider query per keyword.
const DefaultQueryTemplate = "{keyword} related news involving {individual}"

// Config represents the complete pipeline configuration.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Loader    LoaderConfig    `yaml:"loader"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CollectorConfig contains discovery-side settings.
type CollectorConfig struct {
	Subjects []Subject    `yaml:"subjects"`
	Search   SearchConfig `yaml:"search"`
	Retry    RetryPolicy  `yaml:"retry"`
	Output   OutputConfig `yaml:"output"`
}

// Subject is one monitored individual together with the keywords searched for
// and the source domains accepted. Keywords and domains fall back to the
// package defaults when omitted.
type Subject struct {
	Name           string   `yaml:"name"`
	Keywords       []string `yaml:"keywords"`
	AllowedDomains []string `yaml:"allowed_domains"`
	Enabled        bool     `yaml:"enabled"`
}

// SearchConfig describes the external search provider. The API key is read
// from the environment variable named by APIKeyEnv and is never stored in the
// config file.
type SearchConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	SearchDepth       string  `yaml:"search_depth"`
	QueryTemplate     string  `yaml:"query_template"`
	MaxResults        int     `yaml:"max_results"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RetryPolicy defines retry behavior for provider queries.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig describes the durable object store discovery runs are written
// to. Store "fs" writes JSON objects under BasePath; store "s3" writes them to
// an S3-compatible bucket.
type OutputConfig struct {
	Store        string `yaml:"store"`
	BasePath     string `yaml:"base_path"`
	Prefix       string `yaml:"prefix"`
	Bucket       string `yaml:"bucket"`
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// LoaderConfig contains load-side settings.
type LoaderConfig struct {
	Store    string         `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig describes the production article store. The DSN comes from
// the environment variable named by DSNEnv.
type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// SQLiteConfig describes the local article store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in omitted settings.
func (c *Config) applyDefaults() {
	for i := range c.Collector.Subjects {
		if len(c.Collector.Subjects[i].Keywords) == 0 {
			c.Collector.Subjects[i].Keywords = DefaultKeywords
		}

		if len(c.Collector.Subjects[i].AllowedDomains) == 0 {
			c.Collector.Subjects[i].AllowedDomains = DefaultAllowedDomains
		}
	}

	if c.Collector.Search.SearchDepth == "" {
		c.Collector.Search.SearchDepth = "advanced"
	}

	if c.Collector.Search.QueryTemplate == "" {
		c.Collector.Search.QueryTemplate = DefaultQueryTemplate
	}

	if c.Collector.Search.MaxResults == 0 {
		c.Collector.Search.MaxResults = 20
	}

	if c.Collector.Search.RequestsPerSecond == 0 {
		c.Collector.Search.RequestsPerSecond = 2.0
	}

	if c.Collector.Search.Burst == 0 {
		c.Collector.Search.Burst = 4
	}

	if c.Collector.Retry.MaxAttempts == 0 {
		c.Collector.Retry = RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		}
	}

	if c.Collector.Output.Store == "" {
		c.Collector.Output.Store = "fs"
	}

	if c.Collector.Output.Prefix == "" {
		c.Collector.Output.Prefix = "discoveries"
	}

	if c.Loader.Store == "" {
		c.Loader.Store = "sqlite"
	}

	if c.Loader.Postgres.Table == "" {
		c.Loader.Postgres.Table = "articles"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Collector.Subjects) == 0 {
		return ErrNoSubjects
	}

	enabledCount := 0

	for i, subj := range c.Collector.Subjects {
		if strings.TrimSpace(subj.Name) == "" {
			return fmt.Errorf("%w: subject[%d]", ErrSubjectMissingName, i)
		}

		if subj.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSubjects
	}

	if c.Collector.Search.Endpoint == "" {
		return ErrMissingSearchEndpoint
	}

	if c.Collector.Search.APIKeyEnv == "" {
		return ErrMissingAPIKeyEnv
	}

	if c.Collector.Search.MaxResults < 1 {
		return ErrInvalidMaxResults
	}

	if c.Collector.Search.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}

	if c.Collector.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Collector.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Collector.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Collector.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	switch c.Collector.Output.Store {
	case "fs":
		if c.Collector.Output.BasePath == "" {
			return ErrMissingBasePath
		}
	case "s3":
		if c.Collector.Output.Bucket == "" {
			return ErrMissingBucket
		}
	default:
		return ErrInvalidOutputStore
	}

	switch c.Loader.Store {
	case "sqlite":
		if c.Loader.SQLite.Path == "" {
			return ErrMissingSQLitePath
		}
	case "postgres":
		if c.Loader.Postgres.DSNEnv == "" {
			return ErrMissingDSNEnv
		}
	default:
		return ErrInvalidArticleStore
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// GetEnabledSubjects returns only enabled subjects.
func (c *Config) GetEnabledSubjects() []Subject {
	var enabled []Subject

	for _, subj := range c.Collector.Subjects {
		if subj.Enabled {
			enabled = append(enabled, subj)
		}
	}

	return enabled
}

// GetSubject returns the enabled subject with the given name.
func (c *Config) GetSubject(name string) (Subject, bool) {
	for _, subj := range c.Collector.Subjects {
		if subj.Enabled && strings.EqualFold(subj.Name, name) {
			return subj, true
		}
	}

	return Subject{}, false
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Subjects: %d, MaxAttempts: %d, Output: %s, Store: %s}",
		len(c.Collector.Subjects),
		c.Collector.Retry.MaxAttempts,
		c.Collector.Output.Store,
		c.Loader.Store,
	)
}
