package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerWheelFiresInOrder(t *testing.T) {
	w := NewTimerWheel(time.Millisecond, 16, 4)
	base := time.Now()

	var fired []int32
	for i := int32(1); i <= 3; i++ {
		i := i
		w.Add(base.Add(time.Duration(i)*time.Millisecond), func(TimerToken) {
			fired = append(fired, i)
		})
	}

	now := base
	for tick := 0; tick < 5; tick++ {
		now = now.Add(time.Millisecond)
		w.Tick(now)
	}

	require.Len(t, fired, 3)
	assert.Equal(t, []int32{1, 2, 3}, fired)
}

func TestTimerWheelCancelPreventsFire(t *testing.T) {
	w := NewTimerWheel(time.Millisecond, 16, 4)
	base := time.Now()

	var count int32
	token := w.Add(base.Add(2*time.Millisecond), func(TimerToken) {
		atomic.AddInt32(&count, 1)
	})

	require.NoError(t, w.Cancel(token))
	assert.ErrorIs(t, w.Cancel(token), ErrNoSuchTimer)

	now := base
	for tick := 0; tick < 5; tick++ {
		now = now.Add(time.Millisecond)
		w.Tick(now)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestTimerWheelCascadesFromFarWheel(t *testing.T) {
	// nearSize=4 means anything >=4 ticks out lands in the far wheel
	// first and must cascade down correctly.
	w := NewTimerWheel(time.Millisecond, 4, 8)
	base := time.Now()

	fired := make(chan struct{}, 1)
	w.Add(base.Add(10*time.Millisecond), func(TimerToken) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	now := base
	for tick := 0; tick < 12; tick++ {
		now = now.Add(time.Millisecond)
		w.Tick(now)
	}

	select {
	case <-fired:
	default:
		t.Fatal("timer scheduled via the far wheel never fired")
	}
}

func TestTimerWheelPendingCount(t *testing.T) {
	w := NewTimerWheel(time.Millisecond, 16, 4)
	base := time.Now()

	token := w.Add(base.Add(5*time.Millisecond), func(TimerToken) {})
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.Cancel(token))
	assert.Equal(t, 0, w.Pending())
}
