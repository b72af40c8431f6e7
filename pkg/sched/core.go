package sched

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/khryptorgraphics/actlyrt/internal/rtlog"
)

// dispatchState is the per-core Dispatcher state machine.
type dispatchState int32

const (
	stateIdle dispatchState = iota
	stateDispatching
	stateRunningPCB
)

// CoreSchedulerStats is a snapshot of one core's dispatch counters. It is read with Stats and exported by
// pkg/metrics as a plain counters struct plus a Prometheus adapter.
type CoreSchedulerStats struct {
	TotalScheduled  int64
	TotalYields     int64
	TotalMigrations int64
	IdleTicks       int64
}

// CoreScheduler owns one core's four priority queues, its current
// PCB, and its reduction budget. Queues are written by
// their own Dispatcher goroutine except via the explicitly
// synchronized cross-core enqueue path.
type CoreScheduler struct {
	id int

	queues [numPriorities]*priorityQueue

	currentMu sync.Mutex
	current   *PCB

	currentReductions int32 // atomic
	defaultReductions int32

	state dispatchState // atomic

	totalScheduled  int64 // atomic
	totalYields     int64 // atomic
	totalMigrations int64 // atomic
	idleTicks       int64 // atomic

	// wake is signaled by cross-core enqueue or timer fire when this
	// core is IDLE. Buffered 1: at most one
	// pending wake needs to be remembered between Dispatcher polls.
	wake chan struct{}

	log zerolog.Logger
}

// newCoreScheduler initializes one core's scheduler state. Fails if
// core_id >= MaxCores.
func newCoreScheduler(id int, log zerolog.Logger) (*CoreScheduler, error) {
	if id < 0 || id >= MaxCores {
		return nil, ErrInvalidCore
	}
	c := &CoreScheduler{
		id:                id,
		currentReductions: DefaultReductions,
		defaultReductions: DefaultReductions,
		wake:              make(chan struct{}, 1),
		log:               rtlog.WithCore(log, id),
	}
	for p := 0; p < numPriorities; p++ {
		c.queues[p] = newPriorityQueue(id, Priority(p))
	}
	return c, nil
}

// ID returns the core id this scheduler owns.
func (c *CoreScheduler) ID() int { return c.id }

// Enqueue sets state = READY and appends pcb to the tail of the named
// priority queue. Pre: pcb is not already queued and is not RUNNING.
func (c *CoreScheduler) Enqueue(pcb *PCB, priority Priority) error {
	if priority < PriorityMax || priority > PriorityLow {
		return ErrInvalidPriority
	}

	pcb.mu.Lock()
	if pcb.links.linked || pcb.state == StateRunning {
		pcb.mu.Unlock()
		return ErrAlreadyQueued
	}
	pcb.state = StateReady
	pcb.priority = priority
	atomic.StoreInt32(&pcb.ownerCore, int32(c.id))
	pcb.mu.Unlock()

	c.queues[priority].enqueue(pcb)

	if dispatchState(atomic.LoadInt32((*int32)(&c.state))) == stateIdle {
		atomic.StoreInt32((*int32)(&c.state), int32(stateDispatching))
		c.Signal()
	}
	return nil
}

// Requeue puts a PCB the Dispatcher currently owns (RUNNING, after a
// yield, or WAITING, after its block condition cleared) back onto the
// ready queue at priority. Unlike Enqueue, it does not reject a
// RUNNING pcb — only the Dispatcher calls Requeue, and only at the
// point it has already decided to stop running that pcb.
func (c *CoreScheduler) Requeue(pcb *PCB, priority Priority) error {
	if priority < PriorityMax || priority > PriorityLow {
		return ErrInvalidPriority
	}

	pcb.mu.Lock()
	if pcb.links.linked {
		pcb.mu.Unlock()
		return ErrAlreadyQueued
	}
	if pcb.state == StateTerminated {
		// Never resurrect: a pcb terminated while it was off the queues
		// must not reappear as READY.
		pcb.mu.Unlock()
		return ErrNoSuchProcess
	}
	pcb.state = StateReady
	pcb.priority = priority
	pcb.mu.Unlock()

	c.queues[priority].enqueue(pcb)

	if dispatchState(atomic.LoadInt32((*int32)(&c.state))) == stateIdle {
		atomic.StoreInt32((*int32)(&c.state), int32(stateDispatching))
		c.Signal()
	}
	return nil
}

// Dequeue removes and returns the head of the named priority queue,
// or nil if empty. Constant time.
func (c *CoreScheduler) Dequeue(priority Priority) (*PCB, error) {
	if priority < PriorityMax || priority > PriorityLow {
		return nil, ErrInvalidPriority
	}
	return c.queues[priority].dequeue(), nil
}

// Schedule is the core scheduling decision: scan MAX -> HIGH ->
// NORMAL -> LOW, dequeue the first non-empty queue's
// head, and install it as current. Returns nil if every queue is
// empty.
func (c *CoreScheduler) Schedule() *PCB {
	for p := 0; p < numPriorities; p++ {
		pcb := c.queues[p].dequeue()
		if pcb == nil {
			continue
		}

		pcb.mu.Lock()
		pcb.state = StateRunning
		pcb.mu.Unlock()

		c.currentMu.Lock()
		c.current = pcb
		c.currentMu.Unlock()

		atomic.StoreInt32(&c.currentReductions, atomic.LoadInt32(&c.defaultReductions))
		atomic.AddInt64(&c.totalScheduled, 1)
		atomic.StoreInt32((*int32)(&c.state), int32(stateRunningPCB))
		return pcb
	}
	return nil
}

// GetCurrent returns the PCB currently RUNNING on this core, if any.
func (c *CoreScheduler) GetCurrent() *PCB {
	c.currentMu.Lock()
	defer c.currentMu.Unlock()
	return c.current
}

// SetCurrent installs pcb as the running PCB without going through
// Schedule; used by the Dispatcher immediately after a context
// restore and by tests that need to pin a specific PCB.
func (c *CoreScheduler) SetCurrent(pcb *PCB) {
	c.currentMu.Lock()
	c.current = pcb
	c.currentMu.Unlock()
}

// GetReductions returns the current reduction budget.
func (c *CoreScheduler) GetReductions() int {
	return int(atomic.LoadInt32(&c.currentReductions))
}

// SetReductions rejects n outside [MinReductions, MaxReductions].
func (c *CoreScheduler) SetReductions(n int) error {
	if n < MinReductions || n > MaxReductions {
		return ErrInvalidReductions
	}
	atomic.StoreInt32(&c.currentReductions, int32(n))
	return nil
}

// DecrementReductions charges one reduction against the current
// budget and returns the remaining count. Saturates at 0.
func (c *CoreScheduler) DecrementReductions() int {
	n := atomic.AddInt32(&c.currentReductions, -1)
	if n < 0 {
		atomic.StoreInt32(&c.currentReductions, 0)
		return 0
	}
	return int(n)
}

// Charge decrements the reduction budget by a BIF's listed cost
// (e.g. BIFSpawnCost, BIFExitCost).
func (c *CoreScheduler) Charge(cost int) {
	n := atomic.AddInt32(&c.currentReductions, -int32(cost))
	if n < 0 {
		atomic.StoreInt32(&c.currentReductions, 0)
	}
}

// QueueLoad returns the sum of ready-queue counts across all
// priorities, used as the "load" measure by the affinity policy's
// optimal_core and by the balancer's victim selection.
func (c *CoreScheduler) QueueLoad() int {
	total := 0
	for p := 0; p < numPriorities; p++ {
		total += c.queues[p].len()
	}
	return total
}

// Idle reports whether this core's Dispatcher is currently IDLE.
func (c *CoreScheduler) Idle() bool {
	return dispatchState(atomic.LoadInt32((*int32)(&c.state))) == stateIdle
}

// markIdle transitions DISPATCHING -> IDLE once Schedule() has
// returned nil and stealing has failed.
func (c *CoreScheduler) markIdle() {
	atomic.StoreInt32((*int32)(&c.state), int32(stateIdle))
	atomic.AddInt64(&c.idleTicks, 1)
}

// Signal wakes this core's Dispatcher if it is parked waiting for an
// event. Non-blocking: at most one pending
// wake is coalesced.
func (c *CoreScheduler) Signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Stats returns a point-in-time snapshot of this core's counters.
func (c *CoreScheduler) Stats() CoreSchedulerStats {
	return CoreSchedulerStats{
		TotalScheduled:  atomic.LoadInt64(&c.totalScheduled),
		TotalYields:     atomic.LoadInt64(&c.totalYields),
		TotalMigrations: atomic.LoadInt64(&c.totalMigrations),
		IdleTicks:       atomic.LoadInt64(&c.idleTicks),
	}
}
