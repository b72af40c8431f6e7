package sched

import (
	"sync"
	"sync/atomic"
)

// Store exclusively owns every PCB and its memory. All other
// components hold non-owning references keyed by pid, resolved
// through Lookup — this is what lets mailbox entries
// reference a sender_pid without holding a dangling pointer after that
// sender terminates.
type Store struct {
	mu      sync.RWMutex
	byPID   map[int64]*PCB
	nextPID int64

	maxProcesses int    // 0 means unbounded
	onlineMask   uint64 // default affinity mask for a zero input
}

// NewStore creates an empty PCB Store. maxProcesses bounds how many
// live (non-terminated) PCBs may exist at once before Allocate returns
// ErrOOM; 0 means unbounded. onlineMask is the bitset Allocate defaults
// a zero affinityMask input to.
func NewStore(maxProcesses int, onlineMask uint64) *Store {
	return &Store{
		byPID:        make(map[int64]*PCB),
		maxProcesses: maxProcesses,
		onlineMask:   onlineMask,
	}
}

// Allocate reserves a new PCB with a freshly issued, monotonically
// increasing pid; pids are never reused within the store's lifetime.
// Returns ErrOOM once maxProcesses live PCBs are tracked. A zero
// affinityMask is defaulted to onlineMask rather than stored as a
// literal 0: every pcb's mask must be non-zero by the time it reaches
// READY, and the zero-input default is all online cores.
func (s *Store) Allocate(entry EntryFunc, priority Priority, affinityMask uint64, stackSize, heapSize uintptr) (*PCB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxProcesses > 0 && len(s.byPID) >= s.maxProcesses {
		return nil, ErrOOM
	}

	if affinityMask == 0 {
		affinityMask = s.onlineMask
	}

	pid := atomic.AddInt64(&s.nextPID, 1)
	pcb := &PCB{
		PID:             pid,
		state:           StateCreated,
		priority:        priority,
		affinityMask:    affinityMask,
		reductionBudget: DefaultReductions,
		stackSize:       stackSize,
		heapSize:        heapSize,
		entry:           entry,
	}
	s.byPID[pid] = pcb
	return pcb, nil
}

// Lookup resolves a pid to its PCB, or reports ok=false if unknown or
// already reclaimed.
func (s *Store) Lookup(pid int64) (pcb *PCB, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pcb, ok = s.byPID[pid]
	return pcb, ok
}

// Reclaim drops a terminated PCB's entry from the store. The
// PCB value itself is left for any reference already in flight (e.g.
// a mailbox entry's SenderPID lookup racing termination) to simply
// fail with ok=false afterward — there is no use-after-free because
// Go's GC keeps the PCB alive as long as something still points to it.
func (s *Store) Reclaim(pid int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byPID, pid)
}

// Count returns the number of live PCBs currently tracked.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPID)
}
