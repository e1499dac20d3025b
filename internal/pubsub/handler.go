package pubsub

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kidsqa/realtime-gateway/internal/auth/jwt"
	"github.com/kidsqa/realtime-gateway/internal/observability"
)

// AppResolver reports whether an application key is configured.
type AppResolver interface {
	KnownAppKey(key string) bool
}

// AppResolverFunc adapts a function to the AppResolver interface.
type AppResolverFunc func(key string) bool

// KnownAppKey calls the wrapped function.
func (f AppResolverFunc) KnownAppKey(key string) bool {
	return f(key)
}

// Handler runs the protocol for one connection at a time: handshake,
// authentication, subscription management, and keepalive. One Handler is
// shared by all connections; per-connection state lives in the Session.
type Handler struct {
	apps            AppResolver
	validator       jwt.Validator
	registry        *Registry
	logger          observability.Logger
	metrics         *observability.Metrics
	tracer          *observability.Tracer
	activityTimeout int
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHandlerMetrics sets the metrics collector.
func WithHandlerMetrics(metrics *observability.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// WithHandlerTracer sets the tracer.
func WithHandlerTracer(tracer *observability.Tracer) HandlerOption {
	return func(h *Handler) {
		h.tracer = tracer
	}
}

// WithActivityTimeout sets the keepalive interval, in seconds, advertised
// to clients on connect.
func WithActivityTimeout(seconds int) HandlerOption {
	return func(h *Handler) {
		if seconds > 0 {
			h.activityTimeout = seconds
		}
	}
}

// NewHandler creates a protocol handler.
func NewHandler(
	apps AppResolver,
	validator jwt.Validator,
	registry *Registry,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		apps:            apps,
		validator:       validator,
		registry:        registry,
		logger:          observability.NopLogger(),
		activityTimeout: 30,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// connectionEstablishedPayload is the greeting sent on connect.
type connectionEstablishedPayload struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

// authSuccessPayload confirms a successful client-auth.
type authSuccessPayload struct {
	UserID string `json:"user_id"`
}

// authFailedPayload reports a failed client-auth. The message is
// deliberately generic; token failure detail goes to the logs only.
type authFailedPayload struct {
	Message string `json:"message"`
}

// HandleConnection runs the protocol loop for one connection until the
// peer disconnects or commits a fatal protocol violation. It owns the
// connection: it always closes conn and always removes the session from
// every channel before returning.
func (h *Handler) HandleConnection(ctx context.Context, conn Conn, appKey string) error {
	if !h.apps.KnownAppKey(appKey) {
		if h.metrics != nil {
			h.metrics.ConnectionRejected("unknown_app_key")
		}
		h.logger.Warn("connection rejected",
			observability.String("app_key", appKey),
			observability.Error(ErrUnknownAppKey),
		)
		_ = conn.Close()
		return ErrUnknownAppKey
	}

	session := NewSession(conn)
	ctx = observability.ContextWithConnectionID(ctx, session.ID())
	logger := h.logger.With(
		observability.String("connection_id", session.ID()),
		observability.String("socket_id", session.SocketID()),
	)

	if h.metrics != nil {
		h.metrics.ConnectionOpened()
	}
	defer func() {
		h.registry.RemoveFromAllChannels(session)
		_ = session.Close()
		if h.metrics != nil {
			h.metrics.ConnectionClosed()
		}
		logger.Info("connection closed")
	}()

	if err := h.sendEvent(session, EventNameConnectionEstablished, "", connectionEstablishedPayload{
		SocketID:        session.SocketID(),
		ActivityTimeout: h.activityTimeout,
	}); err != nil {
		return fmt.Errorf("failed to send connection greeting: %w", err)
	}
	logger.Info("connection established")

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("read loop ended", observability.Error(err))
			return nil
		}

		frame, kind, err := DecodeFrame(data)
		if err != nil {
			h.sendError(session, "Invalid JSON payload")
			logger.Warn("closing connection", observability.Error(ErrInvalidPayload))
			return ErrInvalidPayload
		}
		if h.metrics != nil {
			h.metrics.FrameReceived(kind.String())
		}

		if err := h.dispatch(ctx, logger, session, frame, kind); err != nil {
			return err
		}
	}
}

// dispatch handles one decoded frame. Unknown events are ignored so older
// and newer clients can interoperate.
func (h *Handler) dispatch(
	ctx context.Context,
	logger observability.Logger,
	session *Session,
	frame *Frame,
	kind EventKind,
) error {
	switch kind {
	case KindClientAuth:
		h.handleAuth(ctx, logger, session, frame)
	case KindSubscribe:
		h.handleSubscribe(ctx, logger, session, frame)
	case KindUnsubscribe:
		h.handleUnsubscribe(logger, session, frame)
	case KindPing:
		_ = h.sendEvent(session, EventNamePong, "", struct{}{})
	case KindConnectionEstablished:
		// Clients may re-request the greeting; the socket id is stable.
		_ = h.sendEvent(session, EventNameConnectionEstablished, "", connectionEstablishedPayload{
			SocketID:        session.SocketID(),
			ActivityTimeout: h.activityTimeout,
		})
	case KindUnknown:
		logger.Debug("ignoring event", observability.String("event", frame.Event))
	}
	return nil
}

// handleAuth validates the credential carried by a client-auth frame and
// binds the token subject to the session. Failures keep the connection
// open and report a generic message to the peer.
func (h *Handler) handleAuth(
	ctx context.Context,
	logger observability.Logger,
	session *Session,
	frame *Frame,
) {
	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "pubsub.auth")
		defer span.End()
	}

	credential := frame.Auth
	if len(credential) == 0 {
		credential = frame.Data
	}

	token, err := jwt.ExtractToken(credential)
	if err == nil {
		var claims *jwt.Claims
		claims, err = h.validator.Validate(ctx, token)
		if err == nil {
			session.MarkAuthenticated(claims.Subject)
			if h.metrics != nil {
				h.metrics.AuthAttempt("success")
			}
			_ = h.sendEvent(session, EventNameAuthSuccess, "", authSuccessPayload{
				UserID: claims.Subject,
			})
			logger.Info("session authenticated",
				observability.String("user_id", claims.Subject),
			)
			return
		}
	}

	if h.metrics != nil {
		h.metrics.AuthAttempt("failed")
	}
	if span != nil {
		span.SetAttributes(attribute.String("auth.result", "failed"))
	}
	logger.Warn("authentication failed", observability.Error(err))
	_ = h.sendEvent(session, EventNameAuthFailed, "", authFailedPayload{
		Message: "Authentication failed",
	})
}

// handleSubscribe applies the authorization policy and, on success,
// registers the session and acknowledges on the channel itself.
func (h *Handler) handleSubscribe(
	ctx context.Context,
	logger observability.Logger,
	session *Session,
	frame *Frame,
) {
	channel := frame.ChannelName()
	if channel == "" {
		if h.metrics != nil {
			h.metrics.SubscribeAttempt("invalid", "unknown")
		}
		h.sendError(session, "Channel name is required")
		return
	}

	if h.tracer != nil {
		var span trace.Span
		_, span = h.tracer.Start(ctx, "pubsub.subscribe",
			attribute.String("channel", channel),
		)
		defer span.End()
	}

	class := string(ClassOf(channel))
	if !CanSubscribe(session, channel) {
		if h.metrics != nil {
			h.metrics.SubscribeAttempt("denied", class)
		}
		logger.Warn("subscription denied",
			observability.String("channel", channel),
		)
		h.sendError(session, "Access denied to channel: "+channel)
		return
	}

	h.registry.Subscribe(session, channel)
	if h.metrics != nil {
		h.metrics.SubscribeAttempt("success", class)
	}
	_ = h.sendEvent(session, EventNameSubscriptionSucceeded, channel, struct{}{})
	logger.Info("session subscribed",
		observability.String("channel", channel),
	)
}

// handleUnsubscribe removes the session from a channel. Unsubscribing from
// a channel the session never joined is silently accepted.
func (h *Handler) handleUnsubscribe(
	logger observability.Logger,
	session *Session,
	frame *Frame,
) {
	channel := frame.ChannelName()
	if channel == "" {
		return
	}
	h.registry.Unsubscribe(session, channel)
	logger.Info("session unsubscribed",
		observability.String("channel", channel),
	)
}

// sendEvent encodes and writes one outbound frame.
func (h *Handler) sendEvent(session *Session, event, channel string, payload any) error {
	data, err := EncodeFrame(event, channel, payload)
	if err != nil {
		return err
	}
	return session.Send(data)
}

// sendError writes a pusher:error frame. Write failures are ignored; the
// read loop notices a dead peer on its own.
func (h *Handler) sendError(session *Session, message string) {
	data, err := EncodeErrorFrame(message)
	if err != nil {
		return
	}
	_ = session.Send(data)
}
