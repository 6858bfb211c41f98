package definition

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of Prometheus collectors a node registers. Wiring real
// counters/gauges here (rather than go-mcast's unused prometheus/common log
// shim) is the domain-stack substitution documented here. Only
// EventsApplied (by the engine's reducer loop) and HistoryOccupancy (by
// history.Log) are updated; PendingEvents, ConnectedClients and
// PeerLastSeen are registered but never set.
type Metrics struct {
	EventsApplied *prometheus.CounterVec
	PendingEvents prometheus.Gauge
	HistoryOccupancy prometheus.Gauge
	ConnectedClients prometheus.Gauge
	PeerLastSeen *prometheus.GaugeVec
}

// NewMetrics constructs and registers the metrics set against reg. Passing
// prometheus.NewRegistry keeps tests hermetic; production wiring in
// cmd/ircmesh registers against prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ircmesh",
			Name: "events_applied_total",
			Help: "Number of events applied to the network state reducer, by variant.",
		}, []string{"kind"}),
		PendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ircmesh",
			Name: "event_log_pending",
			Help: "Number of remote events withheld awaiting unmet causal dependencies.",
		}),
		HistoryOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ircmesh",
			Name: "history_log_entries",
			Help: "Number of entries currently held in the history log ring buffer.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ircmesh",
			Name: "connected_clients",
			Help: "Number of local client connections currently registered.",
		}),
		PeerLastSeen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ircmesh",
			Name: "peer_last_seen_unix",
			Help: "Unix timestamp of the last frame received from each peer.",
		}, []string{"server"}),
	}
	reg.MustRegister(m.EventsApplied, m.PendingEvents, m.HistoryOccupancy, m.ConnectedClients, m.PeerLastSeen)
	return m
}
