package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry write path.
type Metrics struct {
	// Attribute writes by outcome: committed, unauthorized, rejected, rolled_back
	WritesTotal *prometheus.CounterVec

	// Pushes forwarded to the sync target by result
	SyncPushes *prometheus.CounterVec
}

// New creates and registers all registry metrics.
func New() *Metrics {
	return &Metrics{
		WritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_registry_writes_total",
			Help: "Total attribute write attempts by outcome",
		}, []string{"outcome"}),

		SyncPushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_registry_sync_pushes_total",
			Help: "Total sync pushes attempted by the write path, by result",
		}, []string{"result"}),
	}
}

// ObserveWrite records a write attempt outcome.
func (m *Metrics) ObserveWrite(outcome string) {
	if m != nil {
		m.WritesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveSyncPush records a sync push result.
func (m *Metrics) ObserveSyncPush(result string) {
	if m != nil {
		m.SyncPushes.WithLabelValues(result).Inc()
	}
}
