package result

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the teacher's singleton Prometheus-instrumentation
// pattern (internal/ai's patrol metrics), repurposed to the per-tool/
// per-kind/overall counters calls for.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	successTotal  *prometheus.CounterVec
	blockedTotal  *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton result metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpfuzzer",
				Subsystem: "orchestrator",
				Name:      "runs_total",
				Help:      "Total fuzz runs by kind and label",
			},
			[]string{"kind", "label"},
		),
		successTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpfuzzer",
				Subsystem: "orchestrator",
				Name:      "success_total",
				Help:      "Total fuzz runs that completed without error",
			},
			[]string{"kind", "label"},
		),
		blockedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpfuzzer",
				Subsystem: "safety",
				Name:      "blocked_total",
				Help:      "Total tool calls blocked by the safety filter",
			},
			[]string{"tool"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpfuzzer",
				Subsystem: "invariant",
				Name:      "violations_total",
				Help:      "Total invariant violations observed, by kind",
			},
			[]string{"violation_kind"},
		),
	}
	prometheus.MustRegister(m.runsTotal, m.successTotal, m.blockedTotal, m.violationsTotal)
	return m
}

// Observe folds r into the Prometheus counters.
func (m *Metrics) Observe(r *Result) {
	m.runsTotal.WithLabelValues(string(r.Kind), r.Label).Inc()
	if r.Success {
		m.successTotal.WithLabelValues(string(r.Kind), r.Label).Inc()
	}
	if r.SafetyBlocked {
		m.blockedTotal.WithLabelValues(r.Label).Inc()
	}
	for _, v := range r.InvariantViolations {
		m.violationsTotal.WithLabelValues(v).Inc()
	}
}
