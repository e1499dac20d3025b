package config

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	// ErrNoApps indicates that no application keys are configured.
	ErrNoApps = errors.New("at least one app must be configured")

	// ErrNoAuthSecret indicates that the token validation secret is missing.
	ErrNoAuthSecret = errors.New("auth secret must be configured")
)

// ValidateConfig validates a loaded configuration.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if len(c.Apps) == 0 {
		return ErrNoApps
	}

	seen := make(map[string]bool, len(c.Apps))
	for i, app := range c.Apps {
		if app.Key == "" {
			return fmt.Errorf("app %d: key must not be empty", i)
		}
		if app.Secret == "" {
			return fmt.Errorf("app %q: secret must not be empty", app.Key)
		}
		if seen[app.Key] {
			return fmt.Errorf("app key %q configured twice", app.Key)
		}
		seen[app.Key] = true
	}

	if c.Auth.Secret == "" {
		return ErrNoAuthSecret
	}

	if c.Limits.MaxMessageSize < 0 {
		return fmt.Errorf("maxMessageSize must not be negative")
	}

	if c.Limits.HandshakeRPS < 0 || c.Limits.HandshakeBurst < 0 {
		return fmt.Errorf("handshake rate limit values must not be negative")
	}

	if c.Observability.Metrics.Enabled {
		if c.Observability.Metrics.Port < 1 || c.Observability.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port %d", c.Observability.Metrics.Port)
		}
	}

	if rate := c.Observability.Tracing.SamplingRate; rate < 0 || rate > 1 {
		return fmt.Errorf("tracing sampling rate %v out of range [0, 1]", rate)
	}

	return nil
}
