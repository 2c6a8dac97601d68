// Package metrics exposes run progress as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PhaseKing/internal/session"
)

const namespace = "phaseking"

// Metrics holds the coordinator's collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry   // registry holds every collector below
	sessions    *prometheus.CounterVec // sessions counts finished sessions by verdict
	duration    prometheus.Histogram   // duration observes session wall time
	adversaries prometheus.Counter     // adversaries counts adversarial roles dispatched
	decisions   *prometheus.CounterVec // decisions counts decided values by value
	nodes       prometheus.Gauge       // nodes is the fleet size
	planned     prometheus.Gauge       // planned is the number of sessions in the plan
}

// New registers the collectors for a fleet of nodeCount.
func New(nodeCount int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by verdict.",
		}, []string{"verdict"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of one session.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		adversaries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adversaries_total",
			Help:      "Adversarial roles dispatched.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Values decided by honest participants.",
		}, []string{"value"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Participants in the fleet.",
		}),
		planned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "planned_sessions",
			Help:      "Sessions the model check will run.",
		}),
	}

	m.registry.MustRegister(m.sessions, m.duration, m.adversaries, m.decisions, m.nodes, m.planned)
	m.nodes.Set(float64(nodeCount))

	// Both verdicts are exported from the start.
	m.sessions.WithLabelValues(session.Reached.String())
	m.sessions.WithLabelValues(session.NotReached.String())

	return m
}

// SetPlanned records how many sessions the run will play.
func (m *Metrics) SetPlanned(n int) {
	m.planned.Set(float64(n))
}

// Observe implements session.Observer.
func (m *Metrics) Observe(r session.Result) error {
	m.sessions.WithLabelValues(r.Verdict.String()).Inc()
	m.duration.Observe(r.Duration.Seconds())
	m.adversaries.Add(float64(len(r.Adversaries)))
	m.decisions.WithLabelValues("true").Add(float64(r.Tally.True))
	m.decisions.WithLabelValues("false").Add(float64(r.Tally.False))

	return nil
}

// Registry returns the registry, for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
