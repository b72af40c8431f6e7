package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/actlyrt/pkg/sched"
)

func TestSampleExportsCoreCounters(t *testing.T) {
	rt, err := sched.New(sched.DefaultConfig(2), zerolog.Nop())
	require.NoError(t, err)

	m := NewSchedulerMetrics()
	m.Sample(rt)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.ProcessesLive))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.TimersPending))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CoreQueueDepth))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CoreScheduled))
}

func TestRegistryServesCollectors(t *testing.T) {
	m := NewSchedulerMetrics()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	// Unlabeled gauges are present immediately; the per-core vectors
	// only materialize once Sample has observed a runtime.
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["actlyrt_processes_live"])
	assert.True(t, names["actlyrt_steals_succeeded"])
}
