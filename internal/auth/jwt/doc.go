// Package jwt validates the bearer tokens clients present over the
// WebSocket protocol and the broadcasting auth endpoint. Tokens are
// HS256-signed against a shared secret (the Supabase convention); the
// validated subject claim becomes the connection's identity.
package jwt
