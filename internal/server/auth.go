package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kidsqa/realtime-gateway/internal/auth/jwt"
	"github.com/kidsqa/realtime-gateway/internal/config"
	"github.com/kidsqa/realtime-gateway/internal/observability"
	"github.com/kidsqa/realtime-gateway/internal/pubsub"
)

// broadcastingAuthRequest is the body of a channel authorization request.
// AppKey may be omitted when exactly one application is configured.
type broadcastingAuthRequest struct {
	SocketID    string `json:"socket_id" binding:"required"`
	ChannelName string `json:"channel_name" binding:"required"`
	AppKey      string `json:"app_key"`
}

// broadcastingAuthResponse carries the signature a client presents when
// subscribing through a Pusher-compatible client library.
type broadcastingAuthResponse struct {
	Auth string `json:"auth"`
}

// handleBroadcastingAuth signs a channel subscription for an
// authenticated caller. The bearer token identifies the user; the
// channel policy decides access; the response signature is the app
// secret's HMAC over "<socket_id>:<channel_name>".
func (s *Server) handleBroadcastingAuth(c *gin.Context) {
	token, err := jwt.ExtractBearer(c.GetHeader("Authorization"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims, err := s.validator.Validate(c.Request.Context(), token)
	if err != nil {
		s.logger.Warn("broadcasting auth rejected",
			observability.String("client_ip", c.ClientIP()),
			observability.Error(err),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var req broadcastingAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "socket_id and channel_name are required"})
		return
	}

	app, ok := s.resolveApp(req.AppKey)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown app key"})
		return
	}

	if !pubsub.CanSubscribeIdentity(true, claims.Subject, req.ChannelName) {
		s.logger.Warn("broadcasting auth denied",
			observability.String("user_id", claims.Subject),
			observability.String("channel", req.ChannelName),
		)
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied to channel"})
		return
	}

	c.JSON(http.StatusOK, broadcastingAuthResponse{
		Auth: signSubscription(app, req.SocketID, req.ChannelName),
	})
}

// resolveApp finds the application for a key, defaulting to the sole
// configured application when the key is empty.
func (s *Server) resolveApp(key string) (config.AppConfig, bool) {
	cfg := s.conf()
	if key == "" {
		if len(cfg.Apps) == 1 {
			return cfg.Apps[0], true
		}
		return config.AppConfig{}, false
	}
	return cfg.AppByKey(key)
}

// signSubscription builds the "<key>:<hex signature>" auth string.
func signSubscription(app config.AppConfig, socketID, channel string) string {
	mac := hmac.New(sha256.New, []byte(app.Secret))
	mac.Write([]byte(socketID + ":" + channel))
	return app.Key + ":" + hex.EncodeToString(mac.Sum(nil))
}
