package pubsub

import "strings"

// Channel name prefixes with distinct authorization semantics.
const (
	// PrivateUserPrefix marks channels restricted to a single identity.
	PrivateUserPrefix = "private-user."

	// PresencePrefix marks channels open to any authenticated session.
	PresencePrefix = "presence-"

	// ChatChannel is the shared public channel answer events fan out to.
	ChatChannel = "chat"
)

// ChannelClass is the coarse classification of a channel name, used for
// metrics labels and tracing attributes.
type ChannelClass string

// Channel classes.
const (
	ClassPrivate  ChannelClass = "private"
	ClassPresence ChannelClass = "presence"
	ClassPublic   ChannelClass = "public"
)

// ClassOf classifies a channel name by prefix.
func ClassOf(channel string) ChannelClass {
	switch {
	case strings.HasPrefix(channel, PrivateUserPrefix):
		return ClassPrivate
	case strings.HasPrefix(channel, PresencePrefix):
		return ClassPresence
	default:
		return ClassPublic
	}
}

// PrivateUserChannel returns the private channel name for a user.
func PrivateUserChannel(userID string) string {
	return PrivateUserPrefix + userID
}

// CanSubscribe decides whether a session may join a channel. It is pure:
// no I/O, no mutation, so the channel-name grammar can be tested
// exhaustively. The same decision backs the WebSocket subscribe path and
// the HTTP broadcasting auth endpoint.
func CanSubscribe(s *Session, channel string) bool {
	return CanSubscribeIdentity(s.IsAuthenticated(), s.Identity(), channel)
}

// CanSubscribeIdentity is the identity-level policy decision.
// Unauthenticated callers are always denied. Private user channels are
// restricted to their owner; presence and public channels are open to any
// authenticated identity.
func CanSubscribeIdentity(authenticated bool, identity, channel string) bool {
	if !authenticated {
		return false
	}

	if target, ok := strings.CutPrefix(channel, PrivateUserPrefix); ok {
		return identity == target
	}

	return true
}
