package lobby

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_sessions_created_total",
		Help: "Sessions opened by a first arrival",
	})
	metricSessionsPaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_sessions_paired_total",
		Help: "Sessions completed by a second arrival",
	})
	metricSessionsDestroyed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_sessions_destroyed_total",
		Help: "Sessions torn down on close, by state at teardown",
	}, []string{"state"})
	metricMessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_messages_relayed_total",
		Help: "Payloads forwarded to an opponent",
	})
	metricMessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_messages_dropped_total",
		Help: "Payloads not forwarded, by reason",
	}, []string{"reason"})
	metricNotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobby_notify_failures_total",
		Help: "Lifecycle events that could not be delivered",
	}, []string{"event"})
	metricAdmitRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lobby_admit_rejected_total",
		Help: "Admissions refused by the registry",
	})

	gaugeActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_active_sessions",
		Help: "Sessions with two occupants, summed over lobbies",
	})
	gaugePending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_pending_sessions",
		Help: "Sessions waiting for an opponent, summed over lobbies",
	})
	gaugeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobby_connections",
		Help: "Connections currently mapped to a session, summed over lobbies",
	})
)

// gaugeShare is what one lobby has added to the process-wide gauges. The
// gauges only move by differences, so every lobby in the process adds its
// own counts.
type gaugeShare struct {
	active, pending, conns int
}

// observe moves the gauges to r's current counts.
func (g *gaugeShare) observe(r *Registry) {
	pending := 0
	if r.HasPending() {
		pending = 1
	}
	g.set(r.ActiveCount(), pending, r.ConnCount())
}

// release withdraws the share, for a lobby that stopped.
func (g *gaugeShare) release() {
	g.set(0, 0, 0)
}

func (g *gaugeShare) set(active, pending, conns int) {
	gaugeActiveSessions.Add(float64(active - g.active))
	gaugePending.Add(float64(pending - g.pending))
	gaugeConnections.Add(float64(conns - g.conns))
	g.active, g.pending, g.conns = active, pending, conns
}
