package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9000
  shutdownTimeout: "15s"
apps:
  - key: kids-qa
    secret: app-secret
    name: Kids QA
auth:
  secret: jwt-secret
  issuer: supabase
  clockSkew: "30s"
limits:
  maxMessageSize: 4096
  activityTimeout: 30
observability:
  logging:
    level: debug
  metrics:
    enabled: true
    port: 9100
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, sampleConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "jwt-secret", cfg.Auth.Secret)
	assert.Equal(t, "supabase", cfg.Auth.Issuer)
	assert.Equal(t, int64(4096), cfg.Limits.MaxMessageSize)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, 9100, cfg.Observability.Metrics.Port)

	app, ok := cfg.AppByKey("kids-qa")
	require.True(t, ok)
	assert.Equal(t, "app-secret", app.Secret)

	_, ok = cfg.AppByKey("unknown")
	assert.False(t, ok)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`
apps:
  - key: k
    secret: s
auth:
  secret: js
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, int64(DefaultMaxMessageSize), cfg.Limits.MaxMessageSize)
	assert.Equal(t, DefaultActivityTimeout, cfg.Limits.ActivityTimeout)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, DefaultMetricsPath, cfg.Observability.Metrics.Path)
	assert.Equal(t, 1.0, cfg.Observability.Tracing.SamplingRate)
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_AUTH_SECRET", "from-env")

	cfg, err := LoadConfigFromReader(strings.NewReader(`
apps:
  - key: k
    secret: "${TEST_APP_SECRET:-fallback}"
auth:
  secret: "${TEST_AUTH_SECRET}"
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, "fallback", cfg.Apps[0].Secret)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/gateway.yaml")
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("server: [broken"))
		assert.Error(t, err)
	})
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfigFromReader(strings.NewReader(sampleConfig))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "no apps",
			mutate:  func(c *Config) { c.Apps = nil },
			wantErr: "at least one app",
		},
		{
			name:    "empty app key",
			mutate:  func(c *Config) { c.Apps[0].Key = "" },
			wantErr: "key must not be empty",
		},
		{
			name:    "empty app secret",
			mutate:  func(c *Config) { c.Apps[0].Secret = "" },
			wantErr: "secret must not be empty",
		},
		{
			name: "duplicate app key",
			mutate: func(c *Config) {
				c.Apps = append(c.Apps, c.Apps[0])
			},
			wantErr: "configured twice",
		},
		{
			name:    "missing auth secret",
			mutate:  func(c *Config) { c.Auth.Secret = "" },
			wantErr: "auth secret",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad sampling rate",
			mutate:  func(c *Config) { c.Observability.Tracing.SamplingRate = 2 },
			wantErr: "sampling rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
