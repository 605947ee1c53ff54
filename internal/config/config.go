package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gatekeep/internal/models"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration in three layers: defaults, the optional YAML
// file, then GATEKEEP_* environment variables. Development deployments get
// generated secrets when none are configured; production refuses to start
// without real ones (enforced by Validate).
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if config.IsDevelopment() {
		fillDevelopmentSecrets(config)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	if env := os.Getenv("GATEKEEP_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("GATEKEEP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("GATEKEEP_HOST"); host != "" {
		config.Server.Host = host
	}

	if publicURL := os.Getenv("GATEKEEP_PUBLIC_URL"); publicURL != "" {
		config.Server.PublicURL = publicURL
	}

	if timeout := os.Getenv("GATEKEEP_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("GATEKEEP_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("GATEKEEP_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("GATEKEEP_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("GATEKEEP_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("GATEKEEP_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Security configuration
	if auth := os.Getenv("GATEKEEP_ENABLE_AUTH"); auth != "" {
		config.Security.EnableAuth = strings.ToLower(auth) == "true"
	}

	if secret := os.Getenv("GATEKEEP_CSRF_SECRET"); secret != "" {
		config.Security.CSRFSecret = secret
	}

	if secret := os.Getenv("GATEKEEP_SESSION_SECRET"); secret != "" {
		config.Security.SessionSecret = secret
	}

	// Rate limit configuration
	if enabled := os.Getenv("GATEKEEP_RATE_LIMIT_ENABLED"); enabled != "" {
		config.Security.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if strategy := os.Getenv("GATEKEEP_RATE_LIMIT_STRATEGY"); strategy != "" {
		config.Security.RateLimit.Strategy = strategy
	}

	if requests := os.Getenv("GATEKEEP_RATE_LIMIT_REQUESTS"); requests != "" {
		if n, err := strconv.Atoi(requests); err == nil {
			config.Security.RateLimit.Requests = n
		}
	}

	if window := os.Getenv("GATEKEEP_RATE_LIMIT_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.Security.RateLimit.Window = d
		}
	}

	if burst := os.Getenv("GATEKEEP_RATE_LIMIT_BURST"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil {
			config.Security.RateLimit.BurstSize = n
		}
	}

	// Egress configuration
	if redirects := os.Getenv("GATEKEEP_EGRESS_MAX_REDIRECTS"); redirects != "" {
		if n, err := strconv.Atoi(redirects); err == nil {
			config.Egress.MaxRedirects = n
		}
	}

	if maxBytes := os.Getenv("GATEKEEP_EGRESS_MAX_RESPONSE_BYTES"); maxBytes != "" {
		if n, err := strconv.ParseInt(maxBytes, 10, 64); err == nil {
			config.Egress.MaxResponseBytes = n
		}
	}

	if timeout := os.Getenv("GATEKEEP_EGRESS_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Egress.Timeout = d
		}
	}

	if userAgent := os.Getenv("GATEKEEP_EGRESS_USER_AGENT"); userAgent != "" {
		config.Egress.UserAgent = userAgent
	}

	// Storage configuration
	if storageType := os.Getenv("GATEKEEP_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}

	if dsn := os.Getenv("GATEKEEP_DATABASE_DSN"); dsn != "" {
		config.Storage.DSN = dsn
	}

	// Logging configuration
	if level := os.Getenv("GATEKEEP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("GATEKEEP_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("GATEKEEP_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("GATEKEEP_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("GATEKEEP_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("GATEKEEP_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("GATEKEEP_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Tracing configuration
	if tracing := os.Getenv("GATEKEEP_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("GATEKEEP_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("GATEKEEP_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}
}

// fillDevelopmentSecrets generates throwaway secrets so a bare `gatekeep`
// starts locally. Production never reaches this path and fails validation
// instead when secrets are missing.
func fillDevelopmentSecrets(config *models.Config) {
	if config.Security.CSRFSecret == "" {
		config.Security.CSRFSecret = randomSecret()
	}
	if config.Security.SessionSecret == "" {
		config.Security.SessionSecret = randomSecret()
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate secret: %v", err))
	}
	return hex.EncodeToString(buf)
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Security.EnableAuth = true
	config.Security.APIKeys = []models.APIKey{
		{Key: "gk_your-api-key-here", Name: "example", Enabled: true},
	}
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.DSN = "/var/lib/gatekeep/audit.db"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
