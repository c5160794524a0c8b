package playback

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepperonas/Affentanz/internal/models"
)

func TestMetricsRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	probe := newFakeProbe()
	target := models.RGB{R: 1, G: 2, B: 3}
	probe.colorFn = func(n int) (models.RGB, error) {
		if n == 2 {
			return target, nil
		}
		return models.RGB{}, nil
	}
	e := newTestEngine(&fakeInjector{}, probe, WithMetrics(m))

	wf := workflowOf(mustKeys(t, "a"), mustColorWait(t, target, 1000, 5), mustKeys(t, "b"))
	_, err := e.Start(context.Background(), wf)
	require.NoError(t, err)
	waitTerminal(t, e)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.runsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.actionsTotal.WithLabelValues("key_press", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.actionsTotal.WithLabelValues("wait", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.conditionPolls.WithLabelValues("color", "pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.conditionPolls.WithLabelValues("color", "satisfied")))

	count, err := testutil.GatherAndCount(reg, "affentanz_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.runStarted()
	m.runFinished("completed", 1)
	m.action("wait", "success", 1)
	m.conditionPoll("text", "pending")
}
