// Package observability provides logging, metrics, and tracing for the
// realtime gateway. Logging is backed by zap behind a small Logger
// interface, metrics use a private Prometheus registry, and tracing is
// OpenTelemetry with an optional OTLP/gRPC exporter.
package observability
