// Package telemetry holds the Prometheus metrics for safety calls.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeBlocked = "blocked"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds safeguard's collectors. A nil *Metrics records nothing.
//
// Metrics:
//   - safeguard_calls_total{action,outcome} - safety calls by outcome
//   - safeguard_call_duration_seconds{action} - call latency
//   - safeguard_scope_violations_total - blocked check_action calls
//   - safeguard_contradictions_total{severity} - detected contradictions
//   - safeguard_attempts_total{result} - logged attempts
//   - safeguard_retries_blocked_total - attempts matching a known failure
//   - safeguard_validations_total{status} - validate_complete outcomes
//   - safeguard_tokens_opened_total - discover_patterns tokens
//   - safeguard_active_sessions - safety sessions in memory
type Metrics struct {
	registry *prometheus.Registry

	CallsTotal      *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
	ScopeViolations prometheus.Counter
	Contradictions  *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	RetriesBlocked  prometheus.Counter
	Validations     *prometheus.CounterVec
	TokensOpened    prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// New registers the collectors on a fresh registry, so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safeguard_calls_total",
				Help: "Total number of safety calls by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		CallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safeguard_call_duration_seconds",
				Help:    "Duration of safety calls in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5},
			},
			[]string{"action"},
		),
		ScopeViolations: f.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_scope_violations_total",
			Help: "Total number of actions blocked by a scope lock",
		}),
		Contradictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safeguard_contradictions_total",
				Help: "Total number of contradictions with prior decisions",
			},
			[]string{"severity"},
		),
		AttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safeguard_attempts_total",
				Help: "Total number of logged attempts by result",
			},
			[]string{"result"},
		),
		RetriesBlocked: f.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_retries_blocked_total",
			Help: "Total number of attempts that repeated a known failure",
		}),
		Validations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safeguard_validations_total",
				Help: "Total number of validate_complete calls by resulting status",
			},
			[]string{"status"},
		),
		TokensOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_tokens_opened_total",
			Help: "Total number of enforcement tokens opened",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "safeguard_active_sessions",
			Help: "Current number of safety sessions in memory",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCall records one safety call.
func (m *Metrics) ObserveCall(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(action, outcome).Inc()
	m.CallDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ScopeViolation counts a blocked action.
func (m *Metrics) ScopeViolation() {
	if m == nil {
		return
	}
	m.ScopeViolations.Inc()
}

// Contradiction counts a detected contradiction.
func (m *Metrics) Contradiction(severity string) {
	if m == nil {
		return
	}
	m.Contradictions.WithLabelValues(severity).Inc()
}

// Attempt counts a logged attempt.
func (m *Metrics) Attempt(result string, alreadyTried bool) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(result).Inc()
	if alreadyTried {
		m.RetriesBlocked.Inc()
	}
}

// Validation counts a validate_complete outcome.
func (m *Metrics) Validation(status string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(status).Inc()
}

// TokenOpened counts a discover_patterns token.
func (m *Metrics) TokenOpened() {
	if m == nil {
		return
	}
	m.TokensOpened.Inc()
}

// SetActiveSessions sets the in-memory session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
