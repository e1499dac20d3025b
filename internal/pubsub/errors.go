package pubsub

import "errors"

// Sentinel errors for protocol handling.
var (
	// ErrUnknownAppKey indicates the handshake carried an unconfigured
	// application key. Fatal to the connection.
	ErrUnknownAppKey = errors.New("unknown app key")

	// ErrInvalidPayload indicates an inbound frame that is not valid JSON.
	// Fatal to the connection.
	ErrInvalidPayload = errors.New("invalid JSON payload")

	// ErrChannelRequired indicates a subscribe frame without a channel name.
	ErrChannelRequired = errors.New("channel name is required")

	// ErrAccessDenied indicates the authorization policy rejected a
	// subscription. The connection stays open.
	ErrAccessDenied = errors.New("access denied to channel")
)
