package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "server",
	Name:      "connections_active",
	Help:      "Number of active ws connections",
})

var callCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "call_count",
	Help:      "Total number of processed calls by action.",
}, []string{"action", "charge_point_id"})

var callErrorCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "call_error_count",
	Help:      "Total number of call errors by error code.",
}, []string{"code", "charge_point_id"})

func observeConnections(count int) {
	connectionsGauge.Set(float64(count))
}

func observeCall(action, chargePointId string) {
	if len(action) == 0 || len(chargePointId) == 0 {
		return
	}
	callCounts.With(prometheus.Labels{"action": action, "charge_point_id": chargePointId}).Inc()
}

func observeCallError(code, chargePointId string) {
	if len(code) == 0 || len(chargePointId) == 0 {
		return
	}
	callErrorCounts.With(prometheus.Labels{"code": code, "charge_point_id": chargePointId}).Inc()
}
