package metrics

import (
	"testing"

	"github.com/claude/fitlog/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestManager_SessionEvents(t *testing.T) {
	m := NewTestManager()

	m.SessionStarted()
	m.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GaugeActiveSessions))

	m.SessionSaved(models.SessionTypeStrength)
	m.SessionCancelled()
	m.SessionSaved(models.SessionTypeCardio)
	m.RestFinished()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeActiveSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterSessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessionsSaved.WithLabelValues("strength")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessionsSaved.WithLabelValues("cardio")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessionsCancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRestsFinished))
}

func TestNewRegistry_Gathers(t *testing.T) {
	reg := NewRegistry()
	NewManager("fitlog", "server", reg)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
