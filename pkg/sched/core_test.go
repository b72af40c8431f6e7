package sched

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T, id int) *CoreScheduler {
	t.Helper()
	c, err := newCoreScheduler(id, zerolog.Nop())
	require.NoError(t, err)
	return c
}

// TestStrictPriorityOrdering: MAX always preempts HIGH, HIGH always
// preempts NORMAL, NORMAL always preempts LOW, regardless of arrival
// order.
func TestStrictPriorityOrdering(t *testing.T) {
	c := newTestCore(t, 0)

	low := &PCB{PID: 1}
	normal := &PCB{PID: 2}
	high := &PCB{PID: 3}
	max := &PCB{PID: 4}

	require.NoError(t, c.Enqueue(low, PriorityLow))
	require.NoError(t, c.Enqueue(normal, PriorityNormal))
	require.NoError(t, c.Enqueue(high, PriorityHigh))
	require.NoError(t, c.Enqueue(max, PriorityMax))

	assert.Same(t, max, c.Schedule())
	assert.Same(t, high, c.Schedule())
	assert.Same(t, normal, c.Schedule())
	assert.Same(t, low, c.Schedule())
	assert.Nil(t, c.Schedule())
}

func TestScheduleSetsCurrentAndResetsBudget(t *testing.T) {
	c := newTestCore(t, 0)
	pcb := &PCB{PID: 1}
	require.NoError(t, c.Enqueue(pcb, PriorityNormal))

	require.NoError(t, c.SetReductions(MinReductions))
	assert.Equal(t, MinReductions, c.GetReductions())

	got := c.Schedule()
	require.Same(t, pcb, got)
	assert.Same(t, pcb, c.GetCurrent())
	assert.Equal(t, DefaultReductions, c.GetReductions())
	assert.Equal(t, StateRunning, pcb.State())
}

// TestReductionPreemption: DecrementReductions
// saturates at zero rather than going negative, which is what a
// Dispatcher uses to decide a process has exhausted its quantum.
func TestReductionPreemption(t *testing.T) {
	c := newTestCore(t, 0)
	require.NoError(t, c.SetReductions(MinReductions))

	for i := 0; i < MinReductions; i++ {
		c.DecrementReductions()
	}
	assert.Equal(t, 0, c.GetReductions())
	assert.Equal(t, 0, c.DecrementReductions())
}

// TestPreemptedProcessGoesToTail walks the full preemption round trip
// on one core: the running process exhausts its budget, is requeued at
// the tail of its level, and only runs again after everything that was
// already waiting there.
func TestPreemptedProcessGoesToTail(t *testing.T) {
	c := newTestCore(t, 0)

	a := &PCB{PID: 1}
	b := &PCB{PID: 2}
	require.NoError(t, c.Enqueue(a, PriorityNormal))
	require.NoError(t, c.Enqueue(b, PriorityNormal))

	require.Same(t, a, c.Schedule())
	assert.Equal(t, DefaultReductions, c.GetReductions())

	for i := 0; i < DefaultReductions; i++ {
		c.DecrementReductions()
	}
	require.Equal(t, 0, c.GetReductions())

	require.NoError(t, c.Requeue(a, PriorityNormal))
	require.Same(t, b, c.Schedule())

	require.NoError(t, c.Requeue(b, PriorityNormal))
	require.Same(t, a, c.Schedule())
}

func TestRequeueRejectsTerminatedPCB(t *testing.T) {
	c := newTestCore(t, 0)
	pcb := &PCB{PID: 1, state: StateTerminated}

	assert.ErrorIs(t, c.Requeue(pcb, PriorityNormal), ErrNoSuchProcess)
	assert.Equal(t, 0, c.QueueLoad())
}

func TestSetReductionsRejectsOutOfRange(t *testing.T) {
	c := newTestCore(t, 0)
	assert.ErrorIs(t, c.SetReductions(MinReductions-1), ErrInvalidReductions)
	assert.ErrorIs(t, c.SetReductions(MaxReductions+1), ErrInvalidReductions)
	assert.NoError(t, c.SetReductions(MinReductions))
}

func TestEnqueueRejectsRunningPCB(t *testing.T) {
	c := newTestCore(t, 0)
	pcb := &PCB{PID: 1}
	require.NoError(t, c.Enqueue(pcb, PriorityNormal))
	require.Same(t, pcb, c.Schedule())

	err := c.Enqueue(pcb, PriorityNormal)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestNewCoreSchedulerRejectsOutOfRangeID(t *testing.T) {
	_, err := newCoreScheduler(-1, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidCore)

	_, err = newCoreScheduler(MaxCores, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidCore)
}

func TestQueueLoadSumsAllPriorities(t *testing.T) {
	c := newTestCore(t, 0)
	require.NoError(t, c.Enqueue(&PCB{PID: 1}, PriorityLow))
	require.NoError(t, c.Enqueue(&PCB{PID: 2}, PriorityHigh))
	require.NoError(t, c.Enqueue(&PCB{PID: 3}, PriorityHigh))

	assert.Equal(t, 3, c.QueueLoad())
}
