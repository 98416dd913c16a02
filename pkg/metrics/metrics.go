// Package metrics provides Prometheus metrics for the DerbyRush server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "derbyrush"

// Metrics holds all Prometheus collectors for the race coordinator. All
// methods are safe to call on a nil receiver, so components can treat the
// metrics sink as optional.
type Metrics struct {
	tapsAccepted     prometheus.Counter
	racesStarted     prometheus.Counter
	racesFinished    prometheus.Counter
	wagersPlaced     prometheus.Counter
	wagersRejected   prometheus.Counter
	broadcastsSent   prometheus.Counter
	connectedClients prometheus.Gauge
	participants     *prometheus.GaugeVec
}

// New registers all collectors against the given registerer and returns the
// Metrics handle. Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		tapsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taps_accepted_total",
			Help:      "Tap events accepted while a race was running.",
		}),
		racesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_started_total",
			Help:      "Races that entered the countdown phase.",
		}),
		racesFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "races_finished_total",
			Help:      "Races that reached the finish line.",
		}),
		wagersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wagers_placed_total",
			Help:      "Wagers accepted from bettors.",
		}),
		wagersRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wagers_rejected_total",
			Help:      "Wagers rejected for malformed payloads or phase gating.",
		}),
		broadcastsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_sent_total",
			Help:      "Messages fanned out to all connected clients.",
		}),
		connectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Currently connected WebSocket clients.",
		}),
		participants: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants",
			Help:      "Participants currently in the roster, by role.",
		}, []string{"role"}),
	}
}

// TapAccepted counts one accepted tap event.
func (m *Metrics) TapAccepted() {
	if m != nil {
		m.tapsAccepted.Inc()
	}
}

// RaceStarted counts one race entering countdown.
func (m *Metrics) RaceStarted() {
	if m != nil {
		m.racesStarted.Inc()
	}
}

// RaceFinished counts one completed race.
func (m *Metrics) RaceFinished() {
	if m != nil {
		m.racesFinished.Inc()
	}
}

// WagerPlaced counts one accepted wager.
func (m *Metrics) WagerPlaced() {
	if m != nil {
		m.wagersPlaced.Inc()
	}
}

// WagerRejected counts one rejected wager.
func (m *Metrics) WagerRejected() {
	if m != nil {
		m.wagersRejected.Inc()
	}
}

// BroadcastSent counts one fan-out message.
func (m *Metrics) BroadcastSent() {
	if m != nil {
		m.broadcastsSent.Inc()
	}
}

// ClientConnected adjusts the connected-client gauge by delta.
func (m *Metrics) ClientConnected(delta int) {
	if m != nil {
		m.connectedClients.Add(float64(delta))
	}
}

// SetParticipants records the current roster size for a role.
func (m *Metrics) SetParticipants(role string, n int) {
	if m != nil {
		m.participants.WithLabelValues(role).Set(float64(n))
	}
}
