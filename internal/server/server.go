package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kidsqa/realtime-gateway/internal/auth/jwt"
	"github.com/kidsqa/realtime-gateway/internal/config"
	"github.com/kidsqa/realtime-gateway/internal/observability"
	"github.com/kidsqa/realtime-gateway/internal/pubsub"
	"github.com/kidsqa/realtime-gateway/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race
// conditions.
var ginModeOnce sync.Once

// Server is the gateway's HTTP server.
type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	httpServer  *http.Server
	handler     *pubsub.Handler
	broadcaster *pubsub.Broadcaster
	validator   jwt.Validator
	logger      observability.Logger
	metrics     *observability.Metrics
	limiter     *middleware.IPRateLimiter

	mu      sync.RWMutex
	running bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// NewServer creates the gateway HTTP server and registers its routes.
func NewServer(
	cfg *config.Config,
	validator jwt.Validator,
	handler *pubsub.Handler,
	broadcaster *pubsub.Broadcaster,
	opts ...Option,
) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		cfg:         cfg,
		engine:      gin.New(),
		handler:     handler,
		broadcaster: broadcaster,
		validator:   validator,
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Limits.HandshakeRPS > 0 {
		burst := cfg.Limits.HandshakeBurst
		if burst <= 0 {
			burst = cfg.Limits.HandshakeRPS
		}
		s.limiter = middleware.NewIPRateLimiter(cfg.Limits.HandshakeRPS, burst)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.Use(
		middleware.RequestID(),
		middleware.Recovery(s.logger),
		middleware.Logging(s.logger, "/app/ws"),
	)

	s.engine.GET("/app/ws",
		middleware.RateLimit(s.limiter, s.logger),
		s.handleWebSocket,
	)
	s.engine.POST("/broadcasting/auth", s.handleBroadcastingAuth)
	s.engine.POST("/internal/events", s.handlePublishEvent)
}

// Engine returns the underlying gin engine, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the HTTP server until it is stopped or fails. It blocks.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.Port)
	// No WriteTimeout: it would sever long-lived WebSocket connections.
	// Per-frame write deadlines are applied on the upgraded connection.
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.engine,
		ReadTimeout: s.cfg.Server.ReadTimeout.Duration(),
		IdleTimeout: s.cfg.Server.IdleTimeout.Duration(),
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ApplyConfig swaps the configuration used by request handlers. Listen
// address changes require a restart; application keys, secrets, and
// per-connection limits take effect for new requests immediately.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// conf returns the current configuration snapshot.
func (s *Server) conf() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}
