// Package metrics holds the Prometheus instruments of the honeypot.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "honeyshell"

// Command kinds reported by CommandDispatched.
const (
	KindBuiltin     = "builtin"
	KindUnknown     = "unknown"
	KindSyntaxError = "syntax_error"
	KindEmpty       = "empty"
)

// Metrics groups the counters and gauges updated by the services.
type Metrics struct {
	authAttempts       *prometheus.CounterVec
	commands           *prometheus.CounterVec
	commandLogFailures prometheus.Counter
	sessionsActive     prometheus.Gauge
	sessionsTotal      *prometheus.CounterVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by method and result.",
		}, []string{"method", "result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched by the fake shell, by kind.",
		}, []string{"kind"}),
		commandLogFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_log_failures_total",
			Help:      "Command entries that could not be written to the ledger.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Session handlers currently running.",
		}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions started, by mode.",
		}, []string{"mode"}),
	}

	for _, c := range []prometheus.Collector{
		m.authAttempts, m.commands, m.commandLogFailures, m.sessionsActive, m.sessionsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AuthAttempt counts one authentication decision.
func (m *Metrics) AuthAttempt(method string, accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.authAttempts.WithLabelValues(method, result).Inc()
}

// CommandDispatched counts one dispatched command line of the given kind.
func (m *Metrics) CommandDispatched(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

// CommandLogFailed counts a command entry lost to a storage failure.
func (m *Metrics) CommandLogFailed() {
	if m == nil {
		return
	}
	m.commandLogFailures.Inc()
}

// SessionStarted counts a new session in mode ("shell" or "exec").
func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(mode).Inc()
}

// SetActiveSessions records the number of running session handlers.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}
