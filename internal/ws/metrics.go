package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "Websocket clients currently connected",
	})
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_events_published_total",
			Help: "Task events handed to the realtime channel",
		},
		[]string{"type"},
	)
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_events_dropped_total",
			Help: "Task event deliveries dropped",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(EventsDropped)
}
