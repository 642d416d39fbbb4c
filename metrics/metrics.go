package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lending 借还引擎的 Prometheus 指标
type Lending struct {
	Decisions        *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec
	LockConflicts    *prometheus.CounterVec
	RefreshSweeps    *prometheus.CounterVec
}

// NewLending registers on reg; pass a fresh registry in tests to avoid duplicate registration.
func NewLending(reg prometheus.Registerer) *Lending {
	f := promauto.With(reg)
	return &Lending{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_decisions_total",
			Help: "Lending operations by outcome",
		}, []string{"operation", "outcome"}),

		DecisionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lending_decision_duration_seconds",
			Help:    "Time spent per lending operation, lock wait included",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		LockConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_lock_wait_conflicts_total",
			Help: "Equipment lock waits that timed out",
		}, []string{"backend"}),

		RefreshSweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_availability_refresh_total",
			Help: "Per-item availability refreshes done by the scheduled sweep",
		}, []string{"result"}),
	}
}

func (m *Lending) ObserveDecision(operation, outcome string, elapsed time.Duration) {
	m.Decisions.WithLabelValues(operation, outcome).Inc()
	m.DecisionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Lending) LockConflict(backend string) {
	m.LockConflicts.WithLabelValues(backend).Inc()
}

func (m *Lending) ObserveSweep(refreshed, failed int) {
	m.RefreshSweeps.WithLabelValues("ok").Add(float64(refreshed))
	m.RefreshSweeps.WithLabelValues("failed").Add(float64(failed))
}
