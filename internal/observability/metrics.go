// Package observability provides Prometheus metrics for the session engine.
//
// All methods are safe on a nil *Metrics, so callers that run without
// metrics do not need to guard each call.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "agentflow"

// Metrics holds the counters, histograms and gauges of the orchestrator
type Metrics struct {
	// SessionsStarted counts sessions by strategy
	SessionsStarted *prometheus.CounterVec

	// SessionsEnded counts sessions reaching a terminal status.
	// Labels: strategy, status (completed, escalated)
	SessionsEnded *prometheus.CounterVec

	// ActiveSessions tracks sessions currently in the active status
	ActiveSessions *prometheus.GaugeVec

	// Turns counts processed turns.
	// Labels: strategy, outcome (success, decision_missing, malformed_decision, oracle_unavailable, internal)
	Turns *prometheus.CounterVec

	// DecisionQuality counts interpreted decisions by quality tier
	DecisionQuality *prometheus.CounterVec

	// Actions counts chosen flow actions
	Actions *prometheus.CounterVec

	// TurnDuration measures end-to-end turn latency
	TurnDuration *prometheus.HistogramVec

	// OracleRounds measures how many oracle round trips a turn needed
	OracleRounds *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the given registerer.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "started_total",
				Help:      "Total number of sessions started by strategy",
			},
			[]string{"strategy"},
		),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "ended_total",
				Help:      "Total number of sessions ended by strategy and terminal status",
			},
			[]string{"strategy", "status"},
		),
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Number of currently active sessions",
			},
			[]string{"strategy"},
		),
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "turns",
				Name:      "total",
				Help:      "Total number of turns by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		DecisionQuality: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "decisions",
				Name:      "quality_total",
				Help:      "Interpreted decisions by quality tier",
			},
			[]string{"strategy", "quality"},
		),
		Actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "decisions",
				Name:      "actions_total",
				Help:      "Chosen flow actions by strategy",
			},
			[]string{"strategy", "action"},
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "turns",
				Name:      "duration_seconds",
				Help:      "End-to-end turn duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		),
		OracleRounds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "turns",
				Name:      "oracle_rounds",
				Help:      "Oracle round trips needed per turn",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
			[]string{"strategy"},
		),
	}
}

// SessionStarted records a new active session
func (m *Metrics) SessionStarted(strategy string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(strategy).Inc()
	m.ActiveSessions.WithLabelValues(strategy).Inc()
}

// SessionEnded records a session leaving the active status for good
func (m *Metrics) SessionEnded(strategy, status string) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(strategy, status).Inc()
	m.ActiveSessions.WithLabelValues(strategy).Dec()
}

// TurnSucceeded records an interpreted decision
func (m *Metrics) TurnSucceeded(strategy, action, quality string, rounds int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(strategy, "success").Inc()
	m.Actions.WithLabelValues(strategy, action).Inc()
	m.DecisionQuality.WithLabelValues(strategy, quality).Inc()
	m.OracleRounds.WithLabelValues(strategy).Observe(float64(rounds))
	m.TurnDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// TurnFailed records a turn that fell back to the degraded response
func (m *Metrics) TurnFailed(strategy, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(strategy, reason).Inc()
	m.TurnDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}
