// Package models - Service configuration and operational settings.
// This file defines the configuration structures for all gatekeep components.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, security, egress, etc.)
// - Environment-friendly defaults that work out of the box in development
// - Comprehensive validation to catch misconfigurations early
// - Production deployments hard-fail on missing secrets rather than limping along
package models

import (
	"errors"
	"fmt"
	"time"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Rate limit strategy constants
const (
	RateLimitStrategySliding = "sliding"
	RateLimitStrategyBucket  = "bucket"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Environment   string              `yaml:"environment" json:"environment"`     // development, staging, or production
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Security      SecurityConfig      `yaml:"security" json:"security"`           // Auth, secrets, rate limiting
	Egress        EgressConfig        `yaml:"egress" json:"egress"`               // Outbound fetch guard settings
	Storage       StorageConfig       `yaml:"storage" json:"storage"`             // Audit event persistence
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Structured logging
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Prometheus metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	PublicURL    string        `yaml:"public_url" json:"public_url"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

type SecurityConfig struct {
	EnableAuth    bool            `yaml:"enable_auth" json:"enable_auth"`
	APIKeys       []APIKey        `yaml:"api_keys" json:"api_keys"`
	CSRFSecret    string          `yaml:"csrf_secret" json:"csrf_secret"`
	SessionSecret string          `yaml:"session_secret" json:"session_secret"`
	RateLimit     RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// APIKey is a statically configured bearer token. This is a development-grade
// auth mechanism; real deployments are expected to sit behind an identity proxy.
type APIKey struct {
	Key     string `yaml:"key" json:"key"`
	Name    string `yaml:"name" json:"name"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Strategy        string        `yaml:"strategy" json:"strategy"` // sliding or bucket
	Requests        int           `yaml:"requests" json:"requests"` // allowed requests per window
	Window          time.Duration `yaml:"window" json:"window"`
	BurstSize       int           `yaml:"burst_size" json:"burst_size"` // bucket strategy only
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// EgressConfig bounds the SSRF-guarded outbound fetch.
type EgressConfig struct {
	MaxRedirects     int           `yaml:"max_redirects" json:"max_redirects"`
	MaxResponseBytes int64         `yaml:"max_response_bytes" json:"max_response_bytes"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent"`
}

type StorageConfig struct {
	Type string `yaml:"type" json:"type"`
	DSN  string `yaml:"dsn" json:"dsn"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"` // stdout or otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with development-friendly defaults.
//
// Default Values Rationale:
// - Port 8080: standard non-privileged HTTP port
// - 30-second timeouts: balance between user experience and resource protection
// - Memory storage: simple setup without external dependencies
// - Rate limiting enabled: prevent abuse from the start
// - Sliding window of 60 requests/minute: conservative but usable
// - Egress bounded to 5 redirects, 10 MiB, 30 seconds
func NewDefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
		},
		Security: SecurityConfig{
			EnableAuth: false,
			APIKeys:    []APIKey{},
			RateLimit: RateLimitConfig{
				Enabled:         true,
				Strategy:        RateLimitStrategySliding,
				Requests:        60,
				Window:          time.Minute,
				BurstSize:       10,
				CleanupInterval: time.Minute,
			},
		},
		Egress: EgressConfig{
			MaxRedirects:     5,
			MaxResponseBytes: 10 * 1024 * 1024,
			Timeout:          30 * time.Second,
			UserAgent:        "gatekeep",
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "gatekeep",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// IsDevelopment reports whether relaxed development behavior applies
// (debug logging, error details in responses, default-filled secrets).
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Security.Validate(c.Environment); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Egress.Validate(); err != nil {
		return fmt.Errorf("invalid egress config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

// Validate checks the security section. In production, placeholder or missing
// secrets are fatal; development fills them during config.Load instead.
func (sec *SecurityConfig) Validate(environment string) error {
	if environment == EnvProduction {
		if len(sec.CSRFSecret) < 32 {
			return errors.New("csrf_secret must be at least 32 characters in production")
		}
		if len(sec.SessionSecret) < 32 {
			return errors.New("session_secret must be at least 32 characters in production")
		}
	}

	if sec.RateLimit.Enabled {
		if err := sec.RateLimit.Validate(); err != nil {
			return err
		}
	}

	for _, apiKey := range sec.APIKeys {
		if apiKey.Key == "" {
			return errors.New("API key cannot be empty")
		}
		if apiKey.Name == "" {
			return errors.New("API key name cannot be empty")
		}
	}

	if environment == EnvProduction && sec.EnableAuth && len(sec.APIKeys) == 0 {
		return errors.New("auth is enabled but no API keys are configured")
	}

	return nil
}

func (rl *RateLimitConfig) Validate() error {
	switch rl.Strategy {
	case RateLimitStrategySliding, RateLimitStrategyBucket:
	default:
		return fmt.Errorf("invalid rate limit strategy: %s", rl.Strategy)
	}

	if rl.Requests <= 0 {
		return errors.New("rate limit requests must be positive")
	}

	if rl.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}

	if rl.Strategy == RateLimitStrategyBucket && rl.BurstSize <= 0 {
		return errors.New("burst size must be positive for bucket strategy")
	}

	if rl.CleanupInterval < 0 {
		return errors.New("cleanup interval cannot be negative")
	}

	return nil
}

func (ec *EgressConfig) Validate() error {
	if ec.MaxRedirects < 0 {
		return errors.New("max redirects cannot be negative")
	}

	if ec.MaxResponseBytes <= 0 {
		return errors.New("max response bytes must be positive")
	}

	if ec.Timeout <= 0 {
		return errors.New("egress timeout must be positive")
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeSQLite, StorageTypePostgres:
		if stc.DSN == "" {
			return fmt.Errorf("dsn is required for %s storage", stc.Type)
		}
		return nil
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}
}

func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	switch lc.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	switch lc.Output {
	case "stdout", "stderr":
	case "file":
		if lc.FilePath == "" {
			return errors.New("file path is required when output is file")
		}
	default:
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	return nil
}
