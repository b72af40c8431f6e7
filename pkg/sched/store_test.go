package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAllocateMonotonicPID(t *testing.T) {
	s := NewStore(0, 0b1111)

	a, err := s.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)
	b, err := s.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)

	assert.Greater(t, b.PID, a.PID)
}

func TestStoreAllocateRespectsMaxProcesses(t *testing.T) {
	s := NewStore(1, 0b1111)

	_, err := s.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)

	_, err = s.Allocate(nil, PriorityNormal, 0, 0, 0)
	assert.ErrorIs(t, err, ErrOOM)
}

func TestStoreReclaimRemovesFromLookup(t *testing.T) {
	s := NewStore(0, 0b1111)
	pcb, err := s.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)

	_, ok := s.Lookup(pcb.PID)
	require.True(t, ok)

	s.Reclaim(pcb.PID)
	_, ok = s.Lookup(pcb.PID)
	assert.False(t, ok)
}

func TestStorePIDNeverReusedAfterReclaim(t *testing.T) {
	s := NewStore(0, 0b1111)
	first, err := s.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)
	s.Reclaim(first.PID)

	second, err := s.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)

	assert.NotEqual(t, first.PID, second.PID)
}
