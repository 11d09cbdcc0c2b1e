package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections",
		Help: "Live websocket clients",
	})
	metricUpgradeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_upgrade_failures_total",
		Help: "Requests that failed the websocket handshake",
	})
	metricIgnoredFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_ignored_frames_total",
		Help: "Non-text frames received and not relayed",
	})
)
