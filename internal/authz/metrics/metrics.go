package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authorization predicates.
type Metrics struct {
	// Predicate evaluations by predicate and outcome
	Decisions *prometheus.CounterVec
}

// New creates and registers all authorization metrics.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_authz_decisions_total",
			Help: "Total authorization predicate evaluations by predicate and outcome",
		}, []string{"predicate", "outcome"}),
	}
}

// ObserveDecision records one predicate evaluation.
func (m *Metrics) ObserveDecision(predicate, outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(predicate, outcome).Inc()
	}
}
