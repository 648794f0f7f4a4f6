// Package metrics declares the Prometheus collectors shared across the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var BoardMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mentorpro",
	Subsystem: "board",
	Name:      "mutations_total",
	Help:      "Board item mutations by board kind and operation.",
}, []string{"board", "op"})

var BoardPositionWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mentorpro",
	Subsystem: "board",
	Name:      "position_writes_total",
	Help:      "Rows whose position was rewritten while reindexing.",
}, []string{"board"})

var CompetenciesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mentorpro",
	Subsystem: "billing",
	Name:      "competencies_total",
	Help:      "Competency months considered by the generator.",
}, []string{"result"})

var ReconcileOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mentorpro",
	Subsystem: "billing",
	Name:      "reconcile_outcomes_total",
	Help:      "Gateway payments seen during reconciliation by outcome.",
}, []string{"outcome"})

var GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mentorpro",
	Subsystem: "gateway",
	Name:      "requests_total",
	Help:      "Outbound payment gateway requests by operation and status class.",
}, []string{"op", "status"})

var GatewayDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "mentorpro",
	Subsystem: "gateway",
	Name:      "request_duration_seconds",
	Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
}, []string{"op"})

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		BoardMutations,
		BoardPositionWrites,
		CompetenciesGenerated,
		ReconcileOutcomes,
		GatewayRequests,
		GatewayDuration,
	)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
