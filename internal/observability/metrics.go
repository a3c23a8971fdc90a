package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_online_users",
			Help: "Number of users with at least one live connection.",
		},
	)
	presenceTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_presence_transitions_total",
			Help: "Total number of presence transitions.",
		},
		[]string{"status"},
	)
	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_messages_sent_total",
			Help: "Total number of messages accepted by the channel.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_ws_events_total",
			Help: "Total number of websocket events delivered, by event.",
		},
		[]string{"event"},
	)
	wsEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_ws_events_dropped_total",
			Help: "Total number of events dropped due to slow consumers.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		wsActiveConnections,
		onlineUsers,
		presenceTransitionsTotal,
		messagesSentTotal,
		wsEventsTotal,
		wsEventsDroppedTotal,
	)
}

// ConnOpened records a websocket connection being accepted.
func ConnOpened() { wsActiveConnections.Inc() }

// ConnClosed records a websocket connection being torn down.
func ConnClosed() { wsActiveConnections.Dec() }

// SetOnlineUsers records the current online-user cardinality.
func SetOnlineUsers(n int) { onlineUsers.Set(float64(n)) }

// IncPresenceTransition records an online/offline transition.
func IncPresenceTransition(status string) { presenceTransitionsTotal.WithLabelValues(status).Inc() }

// IncMessageSent records an accepted message.
func IncMessageSent() { messagesSentTotal.Inc() }

// IncWSEvent records a delivered event by name.
func IncWSEvent(event string) { wsEventsTotal.WithLabelValues(event).Inc() }

// IncEventDropped records an event dropped on a full client queue.
func IncEventDropped() { wsEventsDroppedTotal.Inc() }

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
