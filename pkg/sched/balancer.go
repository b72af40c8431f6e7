package sched

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Balancer is the work-stealing load balancer: an idle core probes a
// bounded number of randomly chosen victims with ready work (same
// cluster first) and pops an eligible process off the first one that
// has one. The locked priorityQueue pops
// from the head for both local dequeue and steal, preserving FIFO
// order within a priority level for owner and thief alike.
type Balancer struct {
	cores  []*CoreScheduler
	policy *AffinityPolicy

	maxStealAttempts int

	// inFlight bounds how many cores may be actively stealing at once,
	// so a burst of simultaneously idle cores does not all hammer the
	// same few victims under lock contention.
	inFlight *semaphore.Weighted

	totalSteals  int64
	failedSteals int64
}

// NewBalancer wires a Balancer over the given per-core schedulers.
// maxConcurrentStealers bounds simultaneous steal rounds; 0 means
// len(cores) (no effective bound).
func NewBalancer(cores []*CoreScheduler, policy *AffinityPolicy, maxStealAttempts, maxConcurrentStealers int) *Balancer {
	if maxStealAttempts <= 0 {
		maxStealAttempts = DefaultMaxStealAttempts
	}
	if maxConcurrentStealers <= 0 {
		maxConcurrentStealers = len(cores)
	}
	return &Balancer{
		cores:            cores,
		policy:           policy,
		maxStealAttempts: maxStealAttempts,
		inFlight:         semaphore.NewWeighted(int64(maxConcurrentStealers)),
	}
}

// TrySteal is called by an idle core's Dispatcher. It probes up to
// maxStealAttempts distinct victims chosen uniformly at random (excluding thief itself), popping the
// head of the victim's highest nonempty priority queue, subject to
// the affinity policy. Returns nil if no eligible victim PCB was
// found within the attempt budget.
func (b *Balancer) TrySteal(ctx context.Context, thief *CoreScheduler) *PCB {
	if len(b.cores) < 2 {
		return nil
	}
	if !b.inFlight.TryAcquire(1) {
		return nil
	}
	defer b.inFlight.Release(1)

	tried := make(map[int]bool, b.maxStealAttempts)
	for attempt := 0; attempt < b.maxStealAttempts; attempt++ {
		victim := b.pickVictim(thief.ID(), tried)
		if victim == nil {
			break
		}
		tried[victim.ID()] = true

		if ctx.Err() != nil {
			return nil
		}

		pcb := b.stealFrom(victim, thief)
		if pcb != nil {
			atomic.AddInt64(&b.totalSteals, 1)
			atomic.AddInt64(&thief.totalMigrations, 1)
			return pcb
		}
	}
	atomic.AddInt64(&b.failedSteals, 1)
	return nil
}

// pickVictim chooses a pseudo-random eligible victim, preferring one
// in the thief's own cluster when any such victim has ready work.
func (b *Balancer) pickVictim(thiefID int, tried map[int]bool) *CoreScheduler {
	candidates := make([]*CoreScheduler, 0, len(b.cores))
	sameCluster := make([]*CoreScheduler, 0, len(b.cores))

	var thiefCluster int
	haveCluster := b.policy != nil
	if haveCluster {
		thiefCluster = b.policy.Cluster(thiefID)
	}

	for _, c := range b.cores {
		if c.ID() == thiefID || tried[c.ID()] {
			continue
		}
		if c.QueueLoad() == 0 {
			continue
		}
		candidates = append(candidates, c)
		if haveCluster && b.policy.Cluster(c.ID()) == thiefCluster {
			sameCluster = append(sameCluster, c)
		}
	}

	if len(sameCluster) > 0 {
		return sameCluster[rand.Intn(len(sameCluster))]
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.Intn(len(candidates))]
}

// stealFrom attempts to pop one eligible PCB from victim, scanning its
// queues from highest to lowest priority, and re-homes it onto thief.
// Eligibility requires the affinity policy to permit both the steal
// itself and the destination core.
func (b *Balancer) stealFrom(victim, thief *CoreScheduler) *PCB {
	for p := 0; p < numPriorities; p++ {
		q := victim.queues[p]
		if !q.peekNonEmpty() {
			continue
		}

		q.mu.Lock()
		var candidate *PCB
		for n := q.head; n != nil; n = n.qNext {
			if b.policy == nil || b.policy.MigrationAllowed(n, thief.ID()) {
				candidate = n
				break
			}
		}
		if candidate == nil {
			q.mu.Unlock()
			continue
		}
		q.unlinkLocked(candidate)
		q.mu.Unlock()

		atomic.AddInt32(&candidate.migrationCount, 1)
		candidate.mu.Lock()
		candidate.lastMigrationTime = time.Now()
		candidate.mu.Unlock()

		if err := thief.Enqueue(candidate, Priority(p)); err != nil {
			// Destination rejected it (e.g. raced into RUNNING somehow);
			// restore it to the victim rather than drop it.
			victim.queues[p].enqueue(candidate)
			continue
		}
		return candidate
	}
	return nil
}

// Stats returns (total successful steals, rounds that found nothing).
func (b *Balancer) Stats() (succeeded, failed int64) {
	return atomic.LoadInt64(&b.totalSteals), atomic.LoadInt64(&b.failedSteals)
}
