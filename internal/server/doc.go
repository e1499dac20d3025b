// Package server provides the HTTP surface of the realtime gateway: the
// WebSocket endpoint clients connect to, the broadcasting auth endpoint
// backend applications call to sign channel subscriptions, and the
// internal event API producers publish through.
package server
