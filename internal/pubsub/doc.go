// Package pubsub implements the realtime core of the gateway: per-connection
// sessions, the channel authorization policy, the concurrent channel
// registry, the Pusher-style protocol handler, and the broadcast entry
// point used by event producers.
//
// Connections are handled one goroutine per connection; the Registry is the
// single structure shared across them and is safe for concurrent use.
package pubsub
