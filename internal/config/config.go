package config

import "time"

// Config holds all configuration for the realtime gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Apps          []AppConfig         `yaml:"apps"`
	Auth          AuthConfig          `yaml:"auth"`
	Limits        LimitsConfig        `yaml:"limits"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// AppConfig identifies one application allowed to connect.
// Key is presented by clients during the WebSocket handshake; Secret
// signs broadcasting auth responses.
type AppConfig struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
	Name   string `yaml:"name"`
}

// AuthConfig holds token validation settings.
type AuthConfig struct {
	// Secret is the shared HMAC secret tokens are verified against.
	Secret string `yaml:"secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer"`

	// ClockSkew is the tolerance applied to expiry checks.
	ClockSkew Duration `yaml:"clockSkew"`
}

// LimitsConfig bounds per-connection and handshake behavior.
type LimitsConfig struct {
	// MaxMessageSize is the largest accepted inbound frame in bytes.
	MaxMessageSize int64 `yaml:"maxMessageSize"`

	// SendTimeout bounds a single outbound frame write.
	SendTimeout Duration `yaml:"sendTimeout"`

	// ActivityTimeout is advertised to clients in the
	// connection_established reply, in seconds.
	ActivityTimeout int `yaml:"activityTimeout"`

	// HandshakeRPS and HandshakeBurst rate-limit new connections per
	// client IP. Zero disables the limiter.
	HandshakeRPS   int `yaml:"handshakeRPS"`
	HandshakeBurst int `yaml:"handshakeBurst"`
}

// ObservabilityConfig holds logging, metrics, and tracing settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig holds metrics server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// TracingConfig holds tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Insecure     bool    `yaml:"insecure"`
}

// Default values applied by ApplyDefaults.
const (
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultMaxMessageSize  = 64 << 10 // 64 KB
	DefaultActivityTimeout = 30
)

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(120 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(30 * time.Second)
	}
	if c.Limits.MaxMessageSize == 0 {
		c.Limits.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.Limits.SendTimeout == 0 {
		c.Limits.SendTimeout = Duration(5 * time.Second)
	}
	if c.Limits.ActivityTimeout == 0 {
		c.Limits.ActivityTimeout = DefaultActivityTimeout
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "json"
	}
	if c.Observability.Metrics.Port == 0 {
		c.Observability.Metrics.Port = DefaultMetricsPort
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = DefaultMetricsPath
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = "realtime-gateway"
	}
	if c.Observability.Tracing.SamplingRate == 0 {
		c.Observability.Tracing.SamplingRate = 1.0
	}
}

// AppByKey returns the application with the given key, or false when the
// key is unknown.
func (c *Config) AppByKey(key string) (AppConfig, bool) {
	for _, app := range c.Apps {
		if app.Key == key {
			return app, true
		}
	}
	return AppConfig{}, false
}
