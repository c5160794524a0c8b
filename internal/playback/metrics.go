package playback

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "affentanz"

// Metrics are the Prometheus collectors updated by an Engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runsActive     prometheus.Gauge
	runDuration    *prometheus.HistogramVec
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	conditionPolls *prometheus.CounterVec
}

// NewMetrics creates the playback collectors and registers them with reg
// when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished playback runs",
			},
			[]string{"outcome"}, // outcome: completed, failed, stopped
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of playback runs in progress",
			},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Histogram of playback run duration in seconds",
				Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 300, 900},
			},
			[]string{"outcome"},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total number of executed actions",
			},
			[]string{"type", "status"}, // status: success, error
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Histogram of action execution duration in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"type"},
		),
		conditionPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "condition_polls_total",
				Help:      "Total number of condition evaluations",
			},
			[]string{"kind", "outcome"}, // outcome: satisfied, pending, error
		),
	}

	if reg != nil {
		for _, c := range m.Collectors() {
			reg.MustRegister(c)
		}
	}
	return m
}

// Collectors returns every collector for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runsActive,
		m.runDuration,
		m.actionsTotal,
		m.actionDuration,
		m.conditionPolls,
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

func (m *Metrics) runFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) action(actionType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(actionType, status).Inc()
	m.actionDuration.WithLabelValues(actionType).Observe(seconds)
}

func (m *Metrics) conditionPoll(kind, outcome string) {
	if m == nil {
		return
	}
	m.conditionPolls.WithLabelValues(kind, outcome).Inc()
}
