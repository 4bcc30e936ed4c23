// Package observability holds the Prometheus collectors and the
// OpenTelemetry tracer shared by the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwipesTotal counts recorded swipes by decision ("like", "reject", "duplicate").
	SwipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_swipes_total",
		Help: "Total number of swipes processed by decision",
	}, []string{"decision"})

	// MatchesCreated counts mutual likes detected at swipe time.
	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ember_matches_created_total",
		Help: "Total number of matches created",
	})

	// MessagesSent counts persisted chat messages by entry point ("http", "websocket").
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_messages_sent_total",
		Help: "Total number of chat messages persisted",
	}, []string{"source"})

	// RealtimeDeliveries counts relay attempts per recipient by outcome
	// ("delivered", "missed", "dropped", "remote").
	RealtimeDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_realtime_deliveries_total",
		Help: "Realtime message deliveries by outcome",
	}, []string{"outcome"})

	// WebSocketEventsTotal counts inbound WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts frames dropped on full or closed send buffers.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket frames dropped due to backpressure",
	}, []string{"reason"})

	// IdentifiedSessions is the number of users with a registered session.
	IdentifiedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ember_identified_sessions",
		Help: "Number of users with an identified realtime session",
	})

	// OnlineUsers tracks presence transitions seen by this process.
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ember_online_users",
		Help: "Number of users currently marked online",
	})

	// DatabaseQueryLatency records store latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ember_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// TrackQuery returns a func that observes the elapsed time for operation.
//
//	defer observability.TrackQuery("candidates.select")()
func TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
