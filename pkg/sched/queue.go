package sched

import "sync"

// priorityQueue is a doubly linked FIFO of READY PCBs at one priority
// level on one core. Links are intrusive — threaded through the PCB
// itself — for O(1) removal, but the links are never exposed outside
// this package: enqueue/dequeue/remove, plus the balancer's steal scan
// under the queue's own lock (unlinkLocked), are the only way in or
// out, which is what lets the PCB's queueTag stay authoritative.
type priorityQueue struct {
	mu         sync.Mutex
	head, tail *PCB
	count      int

	core     int
	priority Priority
}

func newPriorityQueue(core int, priority Priority) *priorityQueue {
	return &priorityQueue{
		core:     core,
		priority: priority,
	}
}

// enqueue appends pcb to the tail. Pre: pcb is not linked into any
// queue and is not RUNNING. The caller is responsible for having
// already set pcb.state = READY under pcb.mu before calling — enqueue
// only manages link state.
func (q *priorityQueue) enqueue(pcb *PCB) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pcb.links.linked {
		abort("enqueue: pcb already linked into a queue")
	}

	pcb.qPrev = q.tail
	pcb.qNext = nil
	if q.tail != nil {
		q.tail.qNext = pcb
	} else {
		q.head = pcb
	}
	q.tail = pcb
	q.count++

	pcb.links = queueTag{core: int32(q.core), priority: q.priority, linked: true}
}

// dequeue removes and returns the head PCB, or nil if empty.
// Constant time.
func (q *priorityQueue) dequeue() *PCB {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popHeadLocked()
}

func (q *priorityQueue) popHeadLocked() *PCB {
	pcb := q.head
	if pcb == nil {
		return nil
	}
	q.unlinkLocked(pcb)
	return pcb
}

// remove detaches pcb from the queue wherever it sits. Used by exit's
// "remove from any queue" step.
func (q *priorityQueue) remove(pcb *PCB) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !pcb.links.linked || pcb.links.core != int32(q.core) || pcb.links.priority != q.priority {
		return false
	}
	q.unlinkLocked(pcb)
	return true
}

func (q *priorityQueue) unlinkLocked(pcb *PCB) {
	prev := pcb.qPrev
	next := pcb.qNext

	if prev != nil {
		prev.qNext = next
	} else {
		q.head = next
	}
	if next != nil {
		next.qPrev = prev
	} else {
		q.tail = prev
	}

	pcb.qNext, pcb.qPrev = nil, nil
	q.count--
	pcb.links = queueTag{}
}

// len returns the current count; it must equal the link chain length,
// which holds by construction since enqueue/dequeue/remove maintain
// count alongside the links under the same lock.
func (q *priorityQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// peekNonEmpty reports whether the queue has at least one entry,
// without dequeuing — used by the balancer to skip empty victim
// queues before taking their lock to scan.
func (q *priorityQueue) peekNonEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count > 0
}
