package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ocpp",
	Name:      "sessions_active",
	Help:      "Number of incomplete charge sessions",
})

var sessionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "session_count",
	Help:      "Total number of started charge sessions.",
}, []string{"charge_point_id"})

func ObserveActiveSessions(count int) {
	activeSessionsGauge.Set(float64(count))
}

func CountSession(chargePointId string) {
	if len(chargePointId) == 0 {
		return
	}
	sessionCounter.With(prometheus.Labels{"charge_point_id": chargePointId}).Inc()
}
