package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPCB(pid int64) *PCB {
	return &PCB{PID: pid, state: StateReady}
}

func TestPriorityQueueFIFO(t *testing.T) {
	q := newPriorityQueue(0, PriorityNormal)

	a := newTestPCB(1)
	b := newTestPCB(2)
	c := newTestPCB(3)

	q.enqueue(a)
	q.enqueue(b)
	q.enqueue(c)
	require.Equal(t, 3, q.len())

	assert.Same(t, a, q.dequeue())
	assert.Same(t, b, q.dequeue())
	assert.Same(t, c, q.dequeue())
	assert.Nil(t, q.dequeue())
	assert.Equal(t, 0, q.len())
}

func TestPriorityQueueRemoveMiddle(t *testing.T) {
	q := newPriorityQueue(0, PriorityNormal)

	a, b, c := newTestPCB(1), newTestPCB(2), newTestPCB(3)
	q.enqueue(a)
	q.enqueue(b)
	q.enqueue(c)

	require.True(t, q.remove(b))
	assert.Equal(t, 2, q.len())

	assert.Same(t, a, q.dequeue())
	assert.Same(t, c, q.dequeue())
}

func TestPriorityQueueEnqueueAlreadyLinkedAborts(t *testing.T) {
	q := newPriorityQueue(0, PriorityNormal)
	a := newTestPCB(1)
	q.enqueue(a)

	var caught *InvariantViolation
	prev := abortFn
	abortFn = func(err *InvariantViolation) { caught = err }
	defer func() { abortFn = prev }()

	q.enqueue(a)
	require.NotNil(t, caught)
}

func TestPriorityQueueRemoveWrongQueueFails(t *testing.T) {
	qa := newPriorityQueue(0, PriorityNormal)
	qb := newPriorityQueue(0, PriorityHigh)

	a := newTestPCB(1)
	qa.enqueue(a)

	assert.False(t, qb.remove(a))
	assert.True(t, qa.remove(a))
}
