package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kidsqa/realtime-gateway/internal/observability"
)

// upgrader performs the WebSocket handshake. Origin checking is left to
// the deployment's edge; clients authenticate in-band with tokens.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to the protocol handler's transport
// interface, applying the configured per-frame write deadline.
type wsConn struct {
	conn        *websocket.Conn
	sendTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.sendTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// handleWebSocket upgrades the request and runs the protocol loop for the
// connection's lifetime. The app key travels as a query parameter, so it
// is checked after the upgrade and an unknown key closes the socket.
func (s *Server) handleWebSocket(c *gin.Context) {
	appKey := c.Query("appKey")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			observability.String("client_ip", c.ClientIP()),
			observability.Error(err),
		)
		return
	}

	limits := s.conf().Limits
	if limits.MaxMessageSize > 0 {
		conn.SetReadLimit(limits.MaxMessageSize)
	}

	transport := &wsConn{
		conn:        conn,
		sendTimeout: limits.SendTimeout.Duration(),
	}
	_ = s.handler.HandleConnection(c.Request.Context(), transport, appKey)
}
