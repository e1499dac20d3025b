package jwt

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kidsqa/realtime-gateway/internal/observability"
)

// Validator validates bearer tokens and extracts the caller's identity.
type Validator interface {
	// Validate verifies a token and returns its claims. The returned
	// error wraps one of the package sentinel errors.
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Config contains validator settings.
type Config struct {
	// Secret is the shared HMAC secret.
	Secret string

	// Issuer, when non-empty, must equal the token's iss claim.
	Issuer string

	// ClockSkew is the tolerance applied to expiry checks.
	ClockSkew time.Duration
}

// validator implements the Validator interface.
type validator struct {
	config  *Config
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option is a functional option for the validator.
type Option func(*validator)

// WithLogger sets the logger for the validator.
func WithLogger(logger observability.Logger) Option {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithMetrics sets the metrics for the validator.
func WithMetrics(metrics *Metrics) Option {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithClock sets the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(v *validator) {
		v.now = now
	}
}

// NewValidator creates a new token validator.
func NewValidator(config *Config, opts ...Option) (Validator, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Secret == "" {
		return nil, fmt.Errorf("secret is required")
	}

	v := &validator{
		config: config,
		logger: observability.NopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.metrics == nil {
		v.metrics = GetSharedMetrics()
	}

	return v, nil
}

// tokenHeader represents the JWT header.
type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

// Validate verifies a compact HS256 token against the shared secret.
func (v *validator) Validate(ctx context.Context, token string) (*Claims, error) {
	_ = ctx

	if token == "" {
		v.metrics.RecordValidation("error", "missing")
		return nil, ErrTokenMissing
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		v.metrics.RecordValidation("error", "malformed")
		return nil, ErrTokenMalformed
	}

	header, err := decodeHeader(parts[0])
	if err != nil {
		v.metrics.RecordValidation("error", "malformed")
		return nil, NewValidationError("failed to decode header", ErrTokenMalformed)
	}

	if header.Algorithm != "HS256" {
		v.metrics.RecordValidation("error", "algorithm")
		return nil, NewValidationError(
			fmt.Sprintf("algorithm %s is not allowed", header.Algorithm),
			ErrUnsupportedAlgorithm,
		)
	}

	claims, err := decodeClaims(parts[1])
	if err != nil {
		v.metrics.RecordValidation("error", "malformed")
		return nil, NewValidationError("failed to decode claims", ErrTokenMalformed)
	}

	if err := v.verifySignature(parts[0]+"."+parts[1], parts[2]); err != nil {
		v.metrics.RecordValidation("error", "signature")
		return nil, err
	}

	if err := v.validateClaims(claims); err != nil {
		v.metrics.RecordValidation("error", "claims")
		return nil, err
	}

	v.metrics.RecordValidation("success", "")
	v.logger.Debug("token validated",
		observability.String("subject", claims.Subject),
		observability.String("issuer", claims.Issuer),
	)

	return claims, nil
}

// decodeHeader decodes the JWT header.
func decodeHeader(encoded string) (*tokenHeader, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	var header tokenHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	return &header, nil
}

// decodeClaims decodes the JWT claims.
func decodeClaims(encoded string) (*Claims, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	return &claims, nil
}

// verifySignature verifies the HMAC-SHA256 signature.
func (v *validator) verifySignature(signingInput, signature string) error {
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return NewValidationError("failed to decode signature", ErrTokenMalformed)
	}

	mac := hmac.New(sha256.New, []byte(v.config.Secret))
	mac.Write([]byte(signingInput))

	if !hmac.Equal(sig, mac.Sum(nil)) {
		return ErrTokenInvalidSignature
	}

	return nil
}

// validateClaims checks expiry, issuer, and subject after the signature
// has been verified.
func (v *validator) validateClaims(claims *Claims) error {
	now := v.now()

	// A token is rejected at, not only after, its expiry instant.
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time.Add(v.config.ClockSkew)) {
		return ErrTokenExpired
	}

	if v.config.Issuer != "" && claims.Issuer != v.config.Issuer {
		return ErrTokenInvalidIssuer
	}

	if claims.Subject == "" {
		return ErrTokenMissingSubject
	}

	return nil
}
