package pubsub

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Conn is the transport handle a session writes to. Implementations do not
// need to be safe for concurrent writes; the Session serializes them.
type Conn interface {
	// ReadMessage blocks until the next inbound frame or a transport error.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one outbound frame. A failed or timed-out write
	// returns an error; the peer is then treated as unreachable.
	WriteMessage(data []byte) error

	// Close closes the transport. Must be idempotent.
	Close() error
}

// Session holds the server-side state for one open connection. All fields
// other than the identifiers are mutated only by the connection's handler
// goroutine or by the Registry during cleanup, guarded by mu.
type Session struct {
	id       string
	socketID string
	conn     Conn

	mu            sync.Mutex
	authenticated bool
	identity      string
	subscriptions map[string]struct{}

	writeMu sync.Mutex
}

// NewSession creates a session for a freshly opened connection.
func NewSession(conn Conn) *Session {
	return &Session{
		id:            uuid.New().String(),
		socketID:      newSocketID(),
		conn:          conn,
		subscriptions: make(map[string]struct{}),
	}
}

// newSocketID generates a Pusher-style socket id.
func newSocketID() string {
	return fmt.Sprintf("%d.%d", rand.IntN(1_000_000)+1, rand.IntN(1_000_000)+1)
}

// ID returns the connection identifier, unique for the process lifetime.
func (s *Session) ID() string {
	return s.id
}

// SocketID returns the protocol-visible socket id.
func (s *Session) SocketID() string {
	return s.socketID
}

// MarkAuthenticated records a successful authentication. A second call
// replaces the identity but keeps existing subscriptions.
func (s *Session) MarkAuthenticated(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.identity = identity
}

// IsAuthenticated reports whether the session has authenticated.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Identity returns the authenticated user identifier, or "" before
// authentication.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SubscribedChannels returns a snapshot of the session's subscriptions.
func (s *Session) SubscribedChannels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := make([]string, 0, len(s.subscriptions))
	for channel := range s.subscriptions {
		channels = append(channels, channel)
	}
	return channels
}

// Send writes one frame to the connection, serializing concurrent writers
// so delivery stays FIFO per connection.
func (s *Session) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(data)
}

// Close closes the underlying transport.
func (s *Session) Close() error {
	return s.conn.Close()
}

// addSubscription records a channel membership. Returns false when the
// session was already subscribed. Called only by the Registry.
func (s *Session) addSubscription(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[channel]; ok {
		return false
	}
	s.subscriptions[channel] = struct{}{}
	return true
}

// removeSubscription removes a channel membership. Returns false when the
// session was not subscribed. Called only by the Registry.
func (s *Session) removeSubscription(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[channel]; !ok {
		return false
	}
	delete(s.subscriptions, channel)
	return true
}

// clearSubscriptions removes and returns every channel membership.
// Called only by the Registry during disconnect cleanup.
func (s *Session) clearSubscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := make([]string, 0, len(s.subscriptions))
	for channel := range s.subscriptions {
		channels = append(channels, channel)
	}
	s.subscriptions = make(map[string]struct{})
	return channels
}
