package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsEntered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rooms_entered_total",
			Help: "Room entries by assigned role or rejection",
		},
		[]string{"result"},
	)
	Moves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moves_total",
			Help: "Move submissions by outcome",
		},
		[]string{"result"},
	)
	RoundsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rounds_finished_total",
			Help: "Finished rounds by outcome",
		},
		[]string{"outcome"},
	)
	SocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "socket_connections",
			Help: "Open websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(RoomsEntered)
	prometheus.MustRegister(Moves)
	prometheus.MustRegister(RoundsFinished)
	prometheus.MustRegister(SocketConnections)
}
