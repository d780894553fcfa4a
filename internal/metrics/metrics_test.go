package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.AuthAttempt("password", true)
	m.AuthAttempt("password", false)
	m.AuthAttempt("password", false)
	m.CommandDispatched(KindBuiltin)
	m.CommandLogFailed()
	m.SessionStarted("exec")
	m.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("password", "accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("password", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues(KindBuiltin)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandLogFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues("exec")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsActive))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthAttempt("publickey", true)
		m.CommandDispatched(KindEmpty)
		m.CommandLogFailed()
		m.SessionStarted("shell")
		m.SetActiveSessions(1)
	})
}
