package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoomsActive tracks the number of rooms currently holding occupants.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtc_rooms_active",
		Help: "Number of rooms with at least one live connection.",
	})

	// OccupantsActive tracks the number of live connections across all rooms.
	OccupantsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtc_occupants_active",
		Help: "Number of live connections across all rooms.",
	})

	// MessagesRelayed counts routed client frames by kind (chat or signal).
	MessagesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtc_messages_relayed_total",
		Help: "Client frames routed by the relay, by kind.",
	}, []string{"kind"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
