package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "community_hub"

// Realtime holds the Prometheus collectors for the websocket subsystem.
type Realtime struct {
	connections      prometheus.Gauge
	rooms            prometheus.Gauge
	deliveries       *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	evictions        *prometheus.CounterVec
}

// NewRealtime creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewRealtime(reg prometheus.Registerer) *Realtime {
	m := &Realtime{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Number of live websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "rooms",
			Help:      "Number of community rooms with at least one subscriber.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "deliveries_total",
			Help:      "Frames queued to a connection, by event name.",
		}, []string{"event"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "delivery_failures_total",
			Help:      "Frames that could not be queued, by reason.",
		}, []string{"reason"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "evictions_total",
			Help:      "Connections closed by the server, by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.connections, m.rooms, m.deliveries, m.deliveryFailures, m.evictions)
	}
	return m
}

// SetOccupancy records the current registry size.
func (m *Realtime) SetOccupancy(connections, rooms int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(connections))
	m.rooms.Set(float64(rooms))
}

// RecordDelivery counts one frame queued for one connection.
func (m *Realtime) RecordDelivery(event string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(event).Inc()
}

// RecordDeliveryFailure counts one frame that was not queued.
func (m *Realtime) RecordDeliveryFailure(reason string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(reason).Inc()
}

// RecordEviction counts a server-initiated close.
func (m *Realtime) RecordEviction(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(reason).Inc()
}
