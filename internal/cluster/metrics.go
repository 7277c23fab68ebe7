package cluster

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quorum"

// Result label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultTimeout = "timeout"
)

// Metrics holds the collectors of one harness. Each harness registers them
// on its own registry so several harnesses can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	StartupsTotal     *prometheus.CounterVec
	StartupDuration   prometheus.Histogram
	LeaderChanges     prometheus.Counter
	FailoversTotal    *prometheus.CounterVec
	FailoverDuration  prometheus.Histogram
	Members           prometheus.Gauge
	Clients           prometheus.Gauge
	TeardownErrors    prometheus.Counter
	MembershipChanges *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StartupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "startups_total",
				Help:      "Cluster startups by result",
			},
			[]string{"result"},
		),

		StartupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "startup_duration_seconds",
				Help:      "Time from start until a leader is observed",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		LeaderChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leader_changes_total",
				Help:      "Number of times the tracked leader changed",
			},
		),

		FailoversTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failovers_total",
				Help:      "Leader failovers by result",
			},
			[]string{"result"},
		),

		FailoverDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "failover_duration_seconds",
				Help:      "Time from stopping the leader until another node leads",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		Members: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "members",
				Help:      "Nodes tracked by the harness",
			},
		),

		Clients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "clients",
				Help:      "Clients tracked by the harness",
			},
		),

		TeardownErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "teardown_errors_total",
				Help:      "Errors swallowed during teardown",
			},
		),

		MembershipChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "membership_changes_total",
				Help:      "Node additions by result",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) recordStartup(result string, d time.Duration) {
	m.StartupsTotal.WithLabelValues(result).Inc()
	if result == resultSuccess {
		m.StartupDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) recordFailover(result string, d time.Duration) {
	m.FailoversTotal.WithLabelValues(result).Inc()
	if result == resultSuccess {
		m.FailoverDuration.Observe(d.Seconds())
	}
}
