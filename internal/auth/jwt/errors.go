package jwt

import (
	"errors"
	"fmt"
)

// Sentinel errors for token validation.
var (
	// ErrTokenMissing indicates that no token was supplied.
	ErrTokenMissing = errors.New("token is missing")

	// ErrTokenMalformed indicates that the token cannot be parsed.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenExpired indicates that the token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalidSignature indicates that the token signature is invalid.
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenInvalidIssuer indicates that the token issuer does not match
	// the configured issuer. Kept distinct from signature failure for
	// audit logging; protocol replies stay generic.
	ErrTokenInvalidIssuer = errors.New("token issuer is invalid")

	// ErrTokenMissingSubject indicates that the subject claim is absent.
	ErrTokenMissingSubject = errors.New("token subject claim is missing")

	// ErrUnsupportedAlgorithm indicates a signing algorithm other than HS256.
	ErrUnsupportedAlgorithm = errors.New("signing algorithm is not supported")
)

// ValidationError carries context about a failed validation.
type ValidationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("token validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("token validation error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}
