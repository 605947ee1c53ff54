package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gatekeep/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, models.EnvDevelopment, config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, models.StorageTypeMemory, config.Storage.Type)
	assert.True(t, config.Security.RateLimit.Enabled)
	assert.Equal(t, models.RateLimitStrategySliding, config.Security.RateLimit.Strategy)
	assert.Equal(t, 60, config.Security.RateLimit.Requests)
	assert.Equal(t, time.Minute, config.Security.RateLimit.Window)
	assert.Equal(t, 5, config.Egress.MaxRedirects)
	assert.Equal(t, int64(10*1024*1024), config.Egress.MaxResponseBytes)

	// development fills secrets so downstream code never sees empty ones
	assert.NotEmpty(t, config.Security.CSRFSecret)
	assert.NotEmpty(t, config.Security.SessionSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	content := `
environment: staging
server:
  port: 9999
  host: 127.0.0.1
security:
  rate_limit:
    enabled: true
    strategy: bucket
    requests: 120
    window: 30s
    burst_size: 20
egress:
  max_redirects: 2
  max_response_bytes: 1048576
  timeout: 5s
storage:
  type: sqlite
  dsn: /tmp/gatekeep-test.db
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, models.EnvStaging, config.Environment)
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, models.RateLimitStrategyBucket, config.Security.RateLimit.Strategy)
	assert.Equal(t, 120, config.Security.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, config.Security.RateLimit.Window)
	assert.Equal(t, 2, config.Egress.MaxRedirects)
	assert.Equal(t, int64(1048576), config.Egress.MaxResponseBytes)
	assert.Equal(t, 5*time.Second, config.Egress.Timeout)
	assert.Equal(t, models.StorageTypeSQLite, config.Storage.Type)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEKEEP_PORT", "7777")
	t.Setenv("GATEKEEP_HOST", "192.0.2.1")
	t.Setenv("GATEKEEP_RATE_LIMIT_REQUESTS", "10")
	t.Setenv("GATEKEEP_RATE_LIMIT_WINDOW", "10s")
	t.Setenv("GATEKEEP_EGRESS_MAX_REDIRECTS", "1")
	t.Setenv("GATEKEEP_EGRESS_TIMEOUT", "2s")
	t.Setenv("GATEKEEP_LOG_LEVEL", "debug")
	t.Setenv("GATEKEEP_METRICS_ENABLED", "false")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, "192.0.2.1", config.Server.Host)
	assert.Equal(t, 10, config.Security.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, config.Security.RateLimit.Window)
	assert.Equal(t, 1, config.Egress.MaxRedirects)
	assert.Equal(t, 2*time.Second, config.Egress.Timeout)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.False(t, config.Metrics.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	content := "server:\n  port: 9999\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("GATEKEEP_PORT", "7777")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, config.Server.Port)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("GATEKEEP_ENV", "production")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csrf_secret")
}

func TestLoad_ProductionWithSecrets(t *testing.T) {
	t.Setenv("GATEKEEP_ENV", "production")
	t.Setenv("GATEKEEP_CSRF_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("GATEKEEP_SESSION_SECRET", "0123456789abcdef0123456789abcdef")

	config, err := Load("")
	require.NoError(t, err)
	assert.True(t, config.IsProduction())
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("GATEKEEP_ENV", "qa")

	_, err := Load("")
	assert.Error(t, err)
}

func TestSaveExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example", "config.yaml")
	require.NoError(t, SaveExample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rate_limit")
	assert.Contains(t, string(data), "egress")
}
