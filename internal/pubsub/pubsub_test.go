package pubsub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn. Inbound frames are fed through a channel;
// outbound frames are recorded for inspection.
type fakeConn struct {
	inbound chan []byte

	mu       sync.Mutex
	written  [][]byte
	writeErr error
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return nil, errors.New("connection closed")
	}
	return data, nil
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.written = append(c.written, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
	return nil
}

func (c *fakeConn) setWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) writtenFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([][]byte, len(c.written))
	copy(frames, c.written)
	return frames
}

// sentFrame is a decoded outbound frame with the data field unwrapped from
// its string encoding.
type sentFrame struct {
	Event   string
	Channel string
	Data    map[string]any
}

func decodeSentFrame(t *testing.T, raw []byte) sentFrame {
	t.Helper()

	var envelope struct {
		Event   string `json:"event"`
		Channel string `json:"channel"`
		Data    string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))

	frame := sentFrame{Event: envelope.Event, Channel: envelope.Channel}
	if envelope.Data != "" {
		require.NoError(t, json.Unmarshal([]byte(envelope.Data), &frame.Data))
	}
	return frame
}

// newTestSession builds a session over a fresh fake connection.
func newTestSession(t *testing.T) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	return NewSession(conn), conn
}

// newAuthedSession builds a session already authenticated as identity.
func newAuthedSession(t *testing.T, identity string) (*Session, *fakeConn) {
	t.Helper()
	s, conn := newTestSession(t)
	s.MarkAuthenticated(identity)
	return s, conn
}
