package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the realtime gateway.
type Metrics struct {
	connectionsActive   prometheus.Gauge
	connectionsTotal    *prometheus.CounterVec
	framesTotal         *prometheus.CounterVec
	authTotal           *prometheus.CounterVec
	subscribeTotal      *prometheus.CounterVec
	subscriptionsActive prometheus.Gauge
	broadcastsTotal     *prometheus.CounterVec
	deliveriesTotal     *prometheus.CounterVec
	broadcastDuration   prometheus.Histogram
	buildInfo           *prometheus.GaugeVec
	startTime           prometheus.Gauge
	registry            *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "realtime"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of currently open WebSocket connections",
		},
	)

	m.connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of WebSocket connection attempts",
		},
		[]string{"status"},
	)

	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of inbound frames by event kind",
		},
		[]string{"kind"},
	)

	m.authTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Total number of connection authentication attempts",
		},
		[]string{"status"},
	)

	m.subscribeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribe_total",
			Help:      "Total number of channel subscription attempts",
		},
		[]string{"status", "channel_class"},
	)

	m.subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Number of currently held channel subscriptions",
		},
	)

	m.broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast calls by channel class",
		},
		[]string{"channel_class"},
	)

	m.deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of per-subscriber broadcast deliveries",
		},
		[]string{"result"},
	)

	m.broadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Broadcast fan-out duration in seconds",
			Buckets: []float64{
				.0001, .0005, .001, .005, .01,
				.025, .05, .1, .25, .5, 1,
			},
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "go_version"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Unix timestamp of process start",
		},
	)
	m.startTime.SetToCurrentTime()

	m.registry.MustRegister(
		m.connectionsActive,
		m.connectionsTotal,
		m.framesTotal,
		m.authTotal,
		m.subscribeTotal,
		m.subscriptionsActive,
		m.broadcastsTotal,
		m.deliveriesTotal,
		m.broadcastDuration,
		m.buildInfo,
		m.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// SetBuildInfo records build information.
func (m *Metrics) SetBuildInfo(version, goVersion string) {
	m.buildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ConnectionOpened records a successfully established connection.
func (m *Metrics) ConnectionOpened() {
	m.connectionsActive.Inc()
	m.connectionsTotal.WithLabelValues("established").Inc()
}

// ConnectionRejected records a rejected connection attempt.
func (m *Metrics) ConnectionRejected(reason string) {
	m.connectionsTotal.WithLabelValues(reason).Inc()
}

// ConnectionClosed records a closed connection.
func (m *Metrics) ConnectionClosed() {
	m.connectionsActive.Dec()
}

// FrameReceived records an inbound frame by event kind.
func (m *Metrics) FrameReceived(kind string) {
	m.framesTotal.WithLabelValues(kind).Inc()
}

// AuthAttempt records an authentication outcome ("success" or "failed").
func (m *Metrics) AuthAttempt(status string) {
	m.authTotal.WithLabelValues(status).Inc()
}

// SubscribeAttempt records a subscription outcome for a channel class.
func (m *Metrics) SubscribeAttempt(status, channelClass string) {
	m.subscribeTotal.WithLabelValues(status, channelClass).Inc()
}

// SubscriptionAdded increments the active subscription gauge.
func (m *Metrics) SubscriptionAdded() {
	m.subscriptionsActive.Inc()
}

// SubscriptionRemoved decrements the active subscription gauge by n.
func (m *Metrics) SubscriptionRemoved(n int) {
	m.subscriptionsActive.Sub(float64(n))
}

// BroadcastStarted records a broadcast call and returns a done function
// that observes the fan-out duration.
func (m *Metrics) BroadcastStarted(channelClass string) func() {
	m.broadcastsTotal.WithLabelValues(channelClass).Inc()
	start := time.Now()
	return func() {
		m.broadcastDuration.Observe(time.Since(start).Seconds())
	}
}

// DeliveryResult records a per-subscriber delivery ("delivered" or "skipped").
func (m *Metrics) DeliveryResult(result string) {
	m.deliveriesTotal.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
