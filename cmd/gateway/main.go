// Package main is the entry point for the realtime gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/kidsqa/realtime-gateway/internal/auth/jwt"
	"github.com/kidsqa/realtime-gateway/internal/config"
	"github.com/kidsqa/realtime-gateway/internal/health"
	"github.com/kidsqa/realtime-gateway/internal/observability"
	"github.com/kidsqa/realtime-gateway/internal/pubsub"
	"github.com/kidsqa/realtime-gateway/internal/server"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	runGateway(app, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("realtime-gateway version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting realtime-gateway",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.Int("apps", len(cfg.Apps)),
		observability.Int("port", cfg.Server.Port),
		observability.Bool("metrics", cfg.Observability.Metrics.Enabled),
		observability.Bool("tracing", cfg.Observability.Tracing.Enabled),
	)

	return cfg
}

// reloadableAuth carries the components rebuilt on configuration reload:
// the token validator and the set of known application keys. Requests in
// flight keep the snapshot they started with.
type reloadableAuth struct {
	mu        sync.RWMutex
	validator jwt.Validator
	appKeys   map[string]bool
}

func newReloadableAuth(cfg *config.Config, logger observability.Logger) (*reloadableAuth, error) {
	a := &reloadableAuth{}
	if err := a.apply(cfg, logger); err != nil {
		return nil, err
	}
	return a, nil
}

// apply rebuilds the validator and app key set from a new configuration.
func (a *reloadableAuth) apply(cfg *config.Config, logger observability.Logger) error {
	validator, err := jwt.NewValidator(&jwt.Config{
		Secret:    cfg.Auth.Secret,
		Issuer:    cfg.Auth.Issuer,
		ClockSkew: cfg.Auth.ClockSkew.Duration(),
	}, jwt.WithLogger(logger))
	if err != nil {
		return err
	}

	appKeys := make(map[string]bool, len(cfg.Apps))
	for _, app := range cfg.Apps {
		appKeys[app.Key] = true
	}

	a.mu.Lock()
	a.validator = validator
	a.appKeys = appKeys
	a.mu.Unlock()
	return nil
}

// Validate implements jwt.Validator.
func (a *reloadableAuth) Validate(ctx context.Context, token string) (*jwt.Claims, error) {
	a.mu.RLock()
	validator := a.validator
	a.mu.RUnlock()
	return validator.Validate(ctx, token)
}

// KnownAppKey implements pubsub.AppResolver.
func (a *reloadableAuth) KnownAppKey(key string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.appKeys[key]
}

// application holds all application components.
type application struct {
	server        *server.Server
	registry      *pubsub.Registry
	broadcaster   *pubsub.Broadcaster
	auth          *reloadableAuth
	healthChecker *health.Checker
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	config        *config.Config
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := observability.NewMetrics("realtime")
	metrics.SetBuildInfo(version, runtime.Version())
	tracer := initTracer(cfg, logger)
	healthChecker := health.NewChecker(version)

	auth, err := newReloadableAuth(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize token validator", observability.Error(err))
	}

	registry := pubsub.NewRegistry(
		pubsub.WithRegistryLogger(logger),
		pubsub.WithRegistryMetrics(metrics),
	)
	healthChecker.RegisterCheck("registry", health.RegistryCheck(registry))

	handler := pubsub.NewHandler(auth, auth, registry,
		pubsub.WithHandlerLogger(logger),
		pubsub.WithHandlerMetrics(metrics),
		pubsub.WithHandlerTracer(tracer),
		pubsub.WithActivityTimeout(cfg.Limits.ActivityTimeout),
	)

	broadcaster := pubsub.NewBroadcaster(registry,
		pubsub.WithBroadcasterLogger(logger),
		pubsub.WithBroadcasterTracer(tracer),
	)

	srv := server.NewServer(cfg, auth, handler, broadcaster,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	)

	return &application{
		server:        srv,
		registry:      registry,
		broadcaster:   broadcaster,
		auth:          auth,
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		config:        cfg,
	}
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) *observability.Tracer {
	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
		Enabled:      cfg.Observability.Tracing.Enabled,
		Insecure:     cfg.Observability.Tracing.Insecure,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}
	return tracer
}

// runGateway runs the gateway and handles shutdown.
func runGateway(app *application, configPath string, logger observability.Logger) {
	go func() {
		if err := app.server.Start(context.Background()); err != nil {
			logger.Fatal("server failed", observability.Error(err))
		}
	}()

	startMetricsServerIfEnabled(app, logger)
	watcher := startConfigWatcher(app, configPath, logger)

	waitForShutdown(app, watcher, logger)
}

// startMetricsServerIfEnabled serves metrics and probes on a side port.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	metricsCfg := app.config.Observability.Metrics
	if !metricsCfg.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle(metricsCfg.Path, app.metrics.Handler())
	mux.HandleFunc("/health", app.healthChecker.HealthHandler())
	mux.HandleFunc("/live", app.healthChecker.HealthHandler())
	mux.HandleFunc("/ready", app.healthChecker.ReadinessHandler())

	addr := fmt.Sprintf(":%d", metricsCfg.Port)
	go func() {
		logger.Info("starting metrics server",
			observability.String("address", addr),
			observability.String("path", metricsCfg.Path),
		)
		srv := &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", observability.Error(err))
		}
	}()
}

// startConfigWatcher starts the configuration watcher.
func startConfigWatcher(
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		logger.Info("configuration changed, reloading")
		if reloadErr := app.auth.apply(newCfg, logger); reloadErr != nil {
			logger.Error("failed to reload auth configuration", observability.Error(reloadErr))
			return
		}
		app.server.ApplyConfig(newCfg)
	}, config.WithLogger(logger))

	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// waitForShutdown waits for a shutdown signal and drains gracefully.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	app.healthChecker.SetDraining(true)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		app.config.Server.ShutdownTimeout.Duration(),
	)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
