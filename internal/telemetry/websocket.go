package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons recorded on collab_ws_connect_rejected_total
const (
	RejectMissingCookie  = "missing_cookie"
	RejectInvalidToken   = "invalid_token"
	RejectRefreshFailed  = "refresh_failed"
	RejectRevokedToken   = "revoked_token"
	RejectUpgradeFailure = "upgrade_failed"
)

// GatewayMetrics collects the collaboration gateway's Prometheus metrics
type GatewayMetrics struct {
	connections        prometheus.Gauge
	connectionDuration prometheus.Histogram
	connectRejected    *prometheus.CounterVec
	events             *prometheus.CounterVec
	eventErrors        *prometheus.CounterVec
	eventDuration      *prometheus.HistogramVec
	broadcasts         prometheus.Counter
	broadcastFanout    prometheus.Histogram
	onlineUsers        prometheus.Gauge
}

// NewGatewayMetrics creates the collectors and registers them with reg
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collab_ws_connections",
			Help: "Number of authenticated WebSocket connections",
		}),
		connectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collab_ws_connection_duration_seconds",
			Help:    "Lifetime of WebSocket connections",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		}),
		connectRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collab_ws_connect_rejected_total",
			Help: "Connection attempts rejected before the upgrade",
		}, []string{"reason"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collab_ws_events_total",
			Help: "Inbound events processed, by event name",
		}, []string{"event"}),
		eventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collab_ws_event_errors_total",
			Help: "Inbound events that ended in an error event",
		}, []string{"event"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collab_ws_event_duration_seconds",
			Help:    "Handler latency per inbound event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"event"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collab_ws_broadcasts_total",
			Help: "Room broadcasts issued",
		}),
		broadcastFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collab_ws_broadcast_recipients",
			Help:    "Connections reached per room broadcast",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collab_presence_online_users",
			Help: "Live presence entries across all sessions",
		}),
	}

	reg.MustRegister(
		m.connections,
		m.connectionDuration,
		m.connectRejected,
		m.events,
		m.eventErrors,
		m.eventDuration,
		m.broadcasts,
		m.broadcastFanout,
		m.onlineUsers,
	)

	return m
}

// ConnectionOpened records a newly authenticated connection
func (m *GatewayMetrics) ConnectionOpened() {
	m.connections.Inc()
}

// ConnectionClosed records a closed connection and how long it lived
func (m *GatewayMetrics) ConnectionClosed(lifetime time.Duration) {
	m.connections.Dec()
	m.connectionDuration.Observe(lifetime.Seconds())
}

// ConnectRejected records a handshake rejected for reason
func (m *GatewayMetrics) ConnectRejected(reason string) {
	m.connectRejected.WithLabelValues(reason).Inc()
}

// EventHandled records one processed inbound event
func (m *GatewayMetrics) EventHandled(event string, duration time.Duration, failed bool) {
	m.events.WithLabelValues(event).Inc()
	m.eventDuration.WithLabelValues(event).Observe(duration.Seconds())
	if failed {
		m.eventErrors.WithLabelValues(event).Inc()
	}
}

// Broadcast records a room fan-out to recipients connections
func (m *GatewayMetrics) Broadcast(recipients int) {
	m.broadcasts.Inc()
	m.broadcastFanout.Observe(float64(recipients))
}

// SetOnlineUsers publishes the presence entry count
func (m *GatewayMetrics) SetOnlineUsers(n int) {
	m.onlineUsers.Set(float64(n))
}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
