package sched

import (
	"context"
	"sync"
	"time"
)

// MessageFabric carries send/receive traffic: every PCB has an
// unbounded mailbox, send never blocks the sender, and receive
// blocks the caller until a message arrives or a deadline passes.
// Ordering is FIFO per sender only — this falls out naturally since
// each sender's Send calls append under the same lock in call order,
// while two different senders' appends may interleave in either order.
//
// Wake channels live here rather than on the PCB itself: the PCB is a
// plain data record owned by the Store, and parking/waking a receiver
// is a scheduling concern, not PCB state.
type MessageFabric struct {
	store  *Store
	timers *TimerWheel

	mu   sync.Mutex
	wake map[int64]chan struct{}
}

// NewMessageFabric builds a fabric over store, using timers to back
// receive-with-timeout's Timer Entry. Every PCB the store allocates
// must be Register-ed before it can Receive.
func NewMessageFabric(store *Store, timers *TimerWheel) *MessageFabric {
	return &MessageFabric{
		store:  store,
		timers: timers,
		wake:   make(map[int64]chan struct{}),
	}
}

// Register creates the wake channel for a newly allocated pid.
func (f *MessageFabric) Register(pid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wake[pid] = make(chan struct{}, 1)
}

// Unregister drops a terminated pid's wake channel.
func (f *MessageFabric) Unregister(pid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.wake, pid)
}

func (f *MessageFabric) channelFor(pid int64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wake[pid]
}

func (f *MessageFabric) signal(pid int64) {
	ch := f.channelFor(pid)
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Send appends payload to toPID's mailbox and wakes it if it is
// currently blocked in Receive. Send never blocks and
// never fails because the receiver is busy — only an unknown pid is
// an error.
func (f *MessageFabric) Send(fromPID, toPID int64, payload []byte) error {
	target, ok := f.store.Lookup(toPID)
	if !ok {
		return ErrNoSuchProcess
	}

	target.mailboxMu.Lock()
	target.mailbox = append(target.mailbox, Mailslot{
		SenderPID: fromPID,
		Payload:   payload,
		Arrival:   time.Now(),
	})
	target.mailboxMu.Unlock()

	f.signal(toPID)
	return nil
}

// Receive pops the oldest pending message for pid, blocking until one
// arrives, ctx is cancelled, or timeout elapses (timeout <= 0 means
// wait forever). While blocked, the PCB's state is WAITING with
// BlockedOn.Kind == BlockReceive, so it is invisible to
// every priority queue and reported correctly by introspection. A
// positive timeout installs a real Timer Entry on the Timer Wheel —
// the same mechanism Process.Sleep uses — rather than a private
// time.Timer — so a pending receive timeout is visible to
// TimerWheel.Pending and participates in the same wheel the rest of
// the runtime schedules against.
//
// Receive only manages the mailbox and the PCB's WAITING markers; it
// is Runtime's job (via Process.Receive) to take the PCB off the
// Dispatcher's hands before calling this and put it back on a ready
// queue once it returns — Receive itself never touches queue
// membership.
func (f *MessageFabric) Receive(ctx context.Context, pid int64, timeout time.Duration) (Mailslot, error) {
	pcb, ok := f.store.Lookup(pid)
	if !ok {
		return Mailslot{}, ErrNoSuchProcess
	}

	if slot, ok := popMailslot(pcb); ok {
		return slot, nil
	}

	var timerC <-chan struct{}
	var token TimerToken
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		fired := make(chan struct{}, 1)
		token = f.timers.Add(deadline, func(TimerToken) {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		timerC = fired
		defer f.timers.Cancel(token)
	}

	pcb.mu.Lock()
	pcb.state = StateWaiting
	pcb.blockedOn = BlockedOn{Kind: BlockReceive, Deadline: deadline, Token: token}
	pcb.mu.Unlock()

	for {
		wake := f.channelFor(pid)
		select {
		case <-wake:
			if slot, ok := popMailslot(pcb); ok {
				return slot, nil
			}
			// Spurious wake (e.g. fabric re-registered mid-wait); keep
			// waiting on the same deadline.
		case <-timerC:
			return Mailslot{}, ErrReceiveTimeout
		case <-ctx.Done():
			return Mailslot{}, ctx.Err()
		}
	}
}

func popMailslot(pcb *PCB) (Mailslot, bool) {
	pcb.mailboxMu.Lock()
	defer pcb.mailboxMu.Unlock()
	if len(pcb.mailbox) == 0 {
		return Mailslot{}, false
	}
	slot := pcb.mailbox[0]
	pcb.mailbox = pcb.mailbox[1:]
	return slot, true
}

// MailboxLen reports how many messages are pending for pid, without
// consuming them (used by introspection and tests).
func (f *MessageFabric) MailboxLen(pid int64) int {
	pcb, ok := f.store.Lookup(pid)
	if !ok {
		return 0
	}
	pcb.mailboxMu.Lock()
	defer pcb.mailboxMu.Unlock()
	return len(pcb.mailbox)
}
