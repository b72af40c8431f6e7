package sched

import (
	"context"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config configures a Runtime. internal/config.RuntimeConfig is the
// viper-backed, validated host-facing form of this struct; this one
// is the library's own plain data type so pkg/sched has no dependency
// on the config package.
type Config struct {
	NumCores int

	// MaxProcesses bounds live PCBs; 0 means unbounded.
	MaxProcesses int

	// DefaultReductions is the budget granted to a process on each
	// selection. 0 means the compiled-in default; other values must lie
	// in [MinReductions, MaxReductions].
	DefaultReductions int

	// PCoreRange lists core ids to treat as performance cores; every
	// other core is an efficiency core. When set it takes precedence
	// over /sys topology detection, which only runs when it is empty.
	PCoreRange []int

	MaxStealAttempts      int
	MaxConcurrentStealers int

	// MaxMigrationsPerPCB caps how many times one PCB may be stolen;
	// 0 means DefaultMaxMigrationsPerPCB.
	MaxMigrationsPerPCB int32

	TimerTick      time.Duration
	TimerNearSlots int
	TimerFarSlots  int

	// IdlePoll bounds how long a Dispatcher sleeps between steal
	// attempts while idle, in case a wake signal is lost to a race.
	IdlePoll time.Duration

	// PinOSThreads locks each Dispatcher goroutine to an OS thread and
	// pins that thread to its core via sched_setaffinity. Only
	// effective on Linux; elsewhere the pin attempt is logged and
	// skipped.
	PinOSThreads bool
}

// DefaultConfig returns a Config sized for numCores with the package's
// compiled-in defaults.
func DefaultConfig(numCores int) Config {
	return Config{
		NumCores:              numCores,
		DefaultReductions:     DefaultReductions,
		MaxStealAttempts:      DefaultMaxStealAttempts,
		MaxConcurrentStealers: numCores,
		TimerTick:             time.Millisecond,
		TimerNearSlots:        512,
		TimerFarSlots:         64,
		IdlePoll:              10 * time.Millisecond,
	}
}

type doneReason int

const (
	reasonYield doneReason = iota
	reasonBlocked
	reasonExited
)

// procCtrl is the Dispatcher <-> process handshake channel pair. The
// Dispatcher sends on admit exactly when it has decided to run this
// pcb next; the process's goroutine sends exactly one value on done
// per admit, reporting what it did before giving the core back. cancel
// is closed exactly once, by Runtime.Exit, to forcibly cancel a
// process from outside itself — whether it is still waiting to be
// admitted for the first time or parked inside Receive/Sleep.
type procCtrl struct {
	admit  chan struct{}
	done   chan doneReason
	cancel chan struct{}
}

// exitSignal is the control-flow panic used by Process.Exit so exit
// can be called from anywhere in an entry's call stack without every
// frame having to propagate an error up by hand: exit is an
// unconditional unwind, not a return value.
type exitSignal struct {
	reason string
}

// Runtime is the boot and dispatch layer: it owns one CoreScheduler
// per core, the shared PCB Store, the MessageFabric, the work-stealing
// Balancer, the affinity policy, and the timer wheel, and runs one
// Dispatcher goroutine per core that turns ready PCBs into running
// entry calls.
type Runtime struct {
	cfg Config
	log zerolog.Logger

	cores    []*CoreScheduler
	store    *Store
	fabric   *MessageFabric
	balancer *Balancer
	affinity *AffinityPolicy
	timers   *TimerWheel

	ctrlMu sync.RWMutex
	ctrls  map[int64]*procCtrl

	nextCore int32 // atomic round-robin fallback when affinity has no opinion

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	procWg sync.WaitGroup

	running int32 // atomic
}

// New builds a Runtime from cfg. It does not start any goroutines;
// call Start for that.
func New(cfg Config, log zerolog.Logger) (*Runtime, error) {
	if cfg.NumCores <= 0 {
		return nil, ErrInvalidCore
	}
	if cfg.NumCores > MaxOnlineCores {
		// Affinity masks are a uint64 bitset: a 65th core could never
		// be named by any mask and its Dispatcher would idle forever.
		return nil, ErrTooManyCores
	}
	if cfg.TimerTick <= 0 {
		cfg.TimerTick = time.Millisecond
	}
	if cfg.TimerNearSlots <= 0 {
		cfg.TimerNearSlots = 512
	}
	if cfg.TimerFarSlots <= 0 {
		cfg.TimerFarSlots = 64
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = 10 * time.Millisecond
	}
	if cfg.DefaultReductions == 0 {
		cfg.DefaultReductions = DefaultReductions
	}
	if cfg.DefaultReductions < MinReductions || cfg.DefaultReductions > MaxReductions {
		return nil, ErrInvalidReductions
	}

	rt := &Runtime{
		cfg:   cfg,
		log:   log,
		store: NewStore(cfg.MaxProcesses, onlineCoreMask(cfg.NumCores)),
		ctrls: make(map[int64]*procCtrl),
	}

	rt.cores = make([]*CoreScheduler, cfg.NumCores)
	for i := range rt.cores {
		c, err := newCoreScheduler(i, log)
		if err != nil {
			return nil, err
		}
		c.defaultReductions = int32(cfg.DefaultReductions)
		atomic.StoreInt32(&c.currentReductions, int32(cfg.DefaultReductions))
		rt.cores[i] = c
	}

	rt.timers = NewTimerWheel(cfg.TimerTick, cfg.TimerNearSlots, cfg.TimerFarSlots)
	rt.fabric = NewMessageFabric(rt.store, rt.timers)
	rt.affinity = NewAffinityPolicy(cfg.NumCores, cfg.PCoreRange)
	rt.affinity.SetMaxMigrations(cfg.MaxMigrationsPerPCB)
	rt.balancer = NewBalancer(rt.cores, rt.affinity, cfg.MaxStealAttempts, cfg.MaxConcurrentStealers)

	return rt, nil
}

// Cores returns the per-core schedulers, mainly for introspection and
// metrics export.
func (rt *Runtime) Cores() []*CoreScheduler { return rt.cores }

// Store returns the PCB Store.
func (rt *Runtime) Store() *Store { return rt.store }

// Balancer returns the work-stealing balancer.
func (rt *Runtime) Balancer() *Balancer { return rt.balancer }

// Timers returns the shared timer wheel, mainly for introspection and
// metrics export.
func (rt *Runtime) Timers() *TimerWheel { return rt.timers }

// Affinity returns the affinity policy.
func (rt *Runtime) Affinity() *AffinityPolicy { return rt.affinity }

// Start launches one Dispatcher goroutine per core and the timer
// wheel's ticking goroutine. Safe to call once; a second call is a
// no-op.
func (rt *Runtime) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&rt.running, 0, 1) {
		return
	}
	rt.ctx, rt.cancel = context.WithCancel(ctx)
	rt.timers.Run(rt.ctx)

	for _, core := range rt.cores {
		rt.wg.Add(1)
		go rt.dispatchLoop(core)
	}
	rt.log.Info().Int("cores", len(rt.cores)).Msg("scheduler runtime started")
}

// Stop cancels every Dispatcher and the timer wheel and waits for them
// to exit. It does not wait for spawned processes to finish; use Wait
// for that.
func (rt *Runtime) Stop() {
	if !atomic.CompareAndSwapInt32(&rt.running, 1, 0) {
		return
	}
	rt.cancel()
	rt.timers.Stop()
	rt.wg.Wait()
	rt.log.Info().Msg("scheduler runtime stopped")
}

// Wait blocks until every spawned process has exited.
func (rt *Runtime) Wait() {
	rt.procWg.Wait()
}

func (rt *Runtime) setCtrl(pid int64, c *procCtrl) {
	rt.ctrlMu.Lock()
	rt.ctrls[pid] = c
	rt.ctrlMu.Unlock()
}

func (rt *Runtime) ctrlFor(pid int64) *procCtrl {
	rt.ctrlMu.RLock()
	defer rt.ctrlMu.RUnlock()
	return rt.ctrls[pid]
}

func (rt *Runtime) dropCtrl(pid int64) {
	rt.ctrlMu.Lock()
	delete(rt.ctrls, pid)
	rt.ctrlMu.Unlock()
}

// coreByID returns the scheduler owning core id, clamped to range.
func (rt *Runtime) coreByID(id int) *CoreScheduler {
	if id < 0 || id >= len(rt.cores) {
		id = 0
	}
	return rt.cores[id]
}

// pickCore chooses a home core for a freshly spawned PCB: the least
// loaded core its affinity mask permits, or a round-robin fallback if
// the affinity policy has no opinion.
func (rt *Runtime) pickCore(pcb *PCB) *CoreScheduler {
	if c := rt.affinity.OptimalCore(pcb, rt.cores); c != nil {
		return c
	}
	n := atomic.AddInt32(&rt.nextCore, 1)
	return rt.cores[int(n)%len(rt.cores)]
}

// CoreType reports whether coreID was classified as a performance or
// efficiency core.
func (rt *Runtime) CoreType(coreID int) CoreClass {
	return rt.affinity.ClassOf(coreID)
}

// SetAffinity replaces pid's affinity mask. Bits beyond the online-core
// bitset are silently dropped rather than rejected; a mask that names no
// online core (including 0) is rejected with ErrInvalidAffinity.
func (rt *Runtime) SetAffinity(pid int64, mask uint64) error {
	mask &= onlineCoreMask(len(rt.cores))
	if mask == 0 {
		return ErrInvalidAffinity
	}
	pcb, ok := rt.store.Lookup(pid)
	if !ok {
		return ErrNoSuchProcess
	}
	atomic.StoreUint64(&pcb.affinityMask, mask)
	return nil
}

// GetAffinity returns pid's current affinity mask, already truncated to
// the online-core set by the most recent SetAffinity.
func (rt *Runtime) GetAffinity(pid int64) (mask uint64, ok bool) {
	pcb, ok := rt.store.Lookup(pid)
	if !ok {
		return 0, false
	}
	return pcb.AffinityMask(), true
}

// onlineCoreMask returns the bitset naming every online core. New
// caps NumCores at MaxOnlineCores, so the full mask width is exactly
// enough to name them all.
func onlineCoreMask(numCores int) uint64 {
	if numCores >= MaxOnlineCores {
		return ^uint64(0)
	}
	return (uint64(1) << uint(numCores)) - 1
}

// Exit terminates pid regardless of its current state — the only way
// to cancel a process that is WAITING or still READY and has not
// chosen to exit itself. It removes pid from whatever ready queue it
// may be linked into,
// drops its mailbox, cancels any in-progress Receive/Sleep, and — if
// entry was never admitted for the first time — prevents it from ever
// running at all. A pcb that is RUNNING at the moment Exit is called is
// marked TERMINATED immediately but its entry goroutine, which this
// package never preempts mid-execution, keeps running until it next
// calls Yield, which unwinds out of entry instead of giving the core
// back; the Dispatcher then retires it without rescheduling (see
// dispatchLoop's reasonYield and reasonExited cases).
func (rt *Runtime) Exit(pid int64) error {
	pcb, ok := rt.store.Lookup(pid)
	if !ok {
		return ErrNoSuchProcess
	}
	ctrl := rt.ctrlFor(pid)
	if ctrl == nil {
		return ErrNoSuchProcess
	}

	pcb.mu.Lock()
	pcb.state = StateTerminated
	pcb.mu.Unlock()

	core := rt.coreByID(pcb.OwnerCore())
	for p := 0; p < numPriorities; p++ {
		core.queues[p].remove(pcb)
	}

	pcb.mailboxMu.Lock()
	pcb.mailbox = nil
	pcb.mailboxMu.Unlock()

	select {
	case <-ctrl.cancel:
	default:
		close(ctrl.cancel)
	}

	rt.fabric.Unregister(pid)
	rt.store.Reclaim(pid)
	rt.dropCtrl(pid)
	return nil
}

// HostPID is the sender pid stamped on messages delivered with
// Runtime.Send, distinguishing host-originated traffic from any real
// process (real pids start at 1).
const HostPID int64 = 0

// Send delivers payload to toPID's mailbox on behalf of the host
// itself rather than a running process. Entry code should use
// Process.Send, which stamps the true sender pid.
func (rt *Runtime) Send(toPID int64, payload []byte) error {
	return rt.fabric.Send(HostPID, toPID, payload)
}

// TimerAdd schedules a wake-up for pid at deadline and returns a token
// usable with TimerCancel. When the timer fires, a pid that is blocked
// in a receive is prodded to re-check its mailbox and its owner core is
// signaled; a pid that terminated in the meantime is a no-op, the
// stale-entry rule for fired timers whose target is gone.
func (rt *Runtime) TimerAdd(deadline time.Time, pid int64) (TimerToken, error) {
	pcb, ok := rt.store.Lookup(pid)
	if !ok {
		return 0, ErrNoSuchProcess
	}
	owner := pcb.OwnerCore()
	token := rt.timers.Add(deadline, func(TimerToken) {
		if _, ok := rt.store.Lookup(pid); !ok {
			return
		}
		rt.fabric.signal(pid)
		rt.coreByID(owner).Signal()
	})
	return token, nil
}

// TimerCancel removes a pending timer. Idempotent: cancelling a token
// that already fired, or was already cancelled, is not an error.
func (rt *Runtime) TimerCancel(token TimerToken) {
	_ = rt.timers.Cancel(token)
}

// Spawn allocates a PCB, registers its mailbox, starts its backing
// goroutine (parked until the Dispatcher first admits it), and
// enqueues it READY on its chosen home core. The returned Process is
// the host-facing handle entry receives. A zero affinityMask defaults
// to every online core, never the stored literal 0: every live pcb's
// mask must be non-zero.
func (rt *Runtime) Spawn(entry EntryFunc, priority Priority, affinityMask uint64, stackSize, heapSize uintptr) (*Process, error) {
	if affinityMask == 0 {
		affinityMask = onlineCoreMask(len(rt.cores))
	}
	pcb, err := rt.store.Allocate(entry, priority, affinityMask, stackSize, heapSize)
	if err != nil {
		return nil, err
	}
	rt.fabric.Register(pcb.PID)

	ctrl := &procCtrl{admit: make(chan struct{}), done: make(chan doneReason, 1), cancel: make(chan struct{})}
	rt.setCtrl(pcb.PID, ctrl)

	proc := &Process{pid: pcb.PID, rt: rt}

	core := rt.pickCore(pcb)
	atomic.StoreInt32(&pcb.ownerCore, int32(core.ID()))

	rt.procWg.Add(1)
	go func() {
		defer rt.procWg.Done()
		rt.runProcess(ctrl, proc, entry)
	}()

	if err := core.Enqueue(pcb, priority); err != nil {
		return nil, err
	}
	return proc, nil
}

// runProcess is the body of a spawned process's backing goroutine. It
// waits for the first admit, then runs entry to completion (or until
// entry calls Process.Exit), then reports reasonExited.
func (rt *Runtime) runProcess(ctrl *procCtrl, proc *Process, entry EntryFunc) {
	select {
	case <-ctrl.admit:
	case <-ctrl.cancel:
		// Exit(pid) reached this process before the Dispatcher ever
		// admitted it: never run entry at all.
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(exitSignal); ok {
					return
				}
				rt.log.Error().Interface("panic", r).Int64("pid", proc.pid).Msg("process entry panicked")
			}
		}()
		entry(proc)
	}()

	ctrl.done <- reasonExited
}

// dispatchLoop is one core's Dispatcher: it repeatedly schedules the
// highest-priority ready PCB, admits its
// goroutine, and waits to learn whether it yielded, blocked, or
// exited, requeuing or reclaiming accordingly. When no PCB is ready it
// tries to steal one; failing that, it parks until woken or IdlePoll
// elapses.
func (rt *Runtime) dispatchLoop(core *CoreScheduler) {
	defer rt.wg.Done()

	if rt.cfg.PinOSThreads {
		goruntime.LockOSThread()
		if err := SetOSAffinity([]int{core.ID()}); err != nil {
			core.log.Debug().Err(err).Msg("could not pin dispatcher thread to its core")
		}
	}

	for {
		select {
		case <-rt.ctx.Done():
			return
		default:
		}

		pcb := core.Schedule()
		if pcb == nil {
			if stolen := rt.balancer.TrySteal(rt.ctx, core); stolen != nil {
				core.log.Debug().Int64("pid", stolen.PID).Msg("stole ready process")
				continue
			}
			core.markIdle()
			select {
			case <-core.wake:
			case <-time.After(rt.cfg.IdlePoll):
			case <-rt.ctx.Done():
				return
			}
			continue
		}

		ctrl := rt.ctrlFor(pcb.PID)
		if ctrl == nil {
			// Raced with termination bookkeeping; drop it.
			continue
		}

		select {
		case ctrl.admit <- struct{}{}:
		case <-ctrl.cancel:
			// Exit(pid) won the race after Schedule popped this pcb; its
			// goroutine is gone and will never take the admission.
			core.SetCurrent(nil)
			continue
		case <-rt.ctx.Done():
			core.SetCurrent(nil)
			return
		}

		var reason doneReason
		select {
		case reason = <-ctrl.done:
		case <-rt.ctx.Done():
			core.SetCurrent(nil)
			return
		}

		switch reason {
		case reasonYield:
			pcb.mu.Lock()
			terminated := pcb.state == StateTerminated
			pcb.reductionBudget = int32(core.GetReductions())
			pcb.mu.Unlock()
			if terminated {
				// Exit(pid) reached this pcb from another core while it
				// was RUNNING here; do not resurrect it onto the ready
				// queue.
				core.SetCurrent(nil)
				continue
			}
			atomic.AddInt64(&core.totalYields, 1)
			_ = core.Requeue(pcb, pcb.Priority())
		case reasonBlocked:
			pcb.mu.Lock()
			pcb.reductionBudget = int32(core.GetReductions())
			pcb.mu.Unlock()
			core.SetCurrent(nil)
		case reasonExited:
			pcb.mu.Lock()
			pcb.state = StateTerminated
			pcb.mu.Unlock()
			rt.fabric.Unregister(pcb.PID)
			rt.store.Reclaim(pcb.PID)
			rt.dropCtrl(pcb.PID)
			core.SetCurrent(nil)
		}
	}
}

// Process is the host-facing handle passed to an EntryFunc. It is the
// only way process code touches the scheduler: no entry ever sees a
// *PCB or a *CoreScheduler directly.
type Process struct {
	pid int64
	rt  *Runtime
}

// PID returns this process's pid.
func (p *Process) PID() int64 { return p.pid }

// Self returns the PCB backing this process, for introspection
// (state, priority, migration count) — never for mutation.
func (p *Process) Self() (*PCB, bool) {
	return p.rt.store.Lookup(p.pid)
}

// waitAdmit parks until the Dispatcher admits this process again. If
// Runtime.Exit terminated the process while it was parked, the
// admission will never come; unwind out of entry instead of waiting
// forever.
func (p *Process) waitAdmit(ctrl *procCtrl) {
	select {
	case <-ctrl.admit:
	case <-ctrl.cancel:
		panic(exitSignal{reason: "terminated"})
	}
}

// Yield voluntarily gives up the core before the reduction budget is
// exhausted. It re-enters the ready queue at its current priority and
// blocks until the Dispatcher admits it again.
func (p *Process) Yield() {
	ctrl := p.rt.ctrlFor(p.pid)
	if ctrl == nil {
		// Runtime.Exit(pid) already dropped this process; unwind out of
		// entry rather than keep running on the core.
		panic(exitSignal{reason: "terminated"})
	}
	ctrl.done <- reasonYield
	p.waitAdmit(ctrl)
}

// YieldIfContended yields only when another process is ready on this
// core, reporting whether it yielded. An uncontended process keeps the
// core without a pointless queue round trip.
func (p *Process) YieldIfContended() bool {
	pcb, ok := p.Self()
	if !ok {
		return false
	}
	core := p.rt.coreByID(pcb.OwnerCore())
	if core.QueueLoad() == 0 {
		return false
	}
	p.Yield()
	return true
}

// YieldIfExhausted checks the owning core's reduction budget and
// yields only if it has reached zero, returning whether it yielded.
func (p *Process) YieldIfExhausted() bool {
	pcb, ok := p.Self()
	if !ok {
		return false
	}
	core := p.rt.coreByID(pcb.OwnerCore())
	if core.GetReductions() > 0 {
		return false
	}
	p.Yield()
	return true
}

// Charge spends cost reductions from the owning core's budget and
// yields if that exhausts it, mirroring how a bytecode dispatcher
// would charge a BIF and then check for preemption.
func (p *Process) Charge(cost int) {
	pcb, ok := p.Self()
	if !ok {
		return
	}
	core := p.rt.coreByID(pcb.OwnerCore())
	core.Charge(cost)
	if core.GetReductions() <= 0 {
		p.Yield()
	}
}

// Send delivers payload to toPID's mailbox.
func (p *Process) Send(toPID int64, payload []byte) error {
	return p.rt.fabric.Send(p.pid, toPID, payload)
}

// Receive blocks until a message arrives, ctx is cancelled, or timeout
// elapses (timeout <= 0 waits forever). It takes the process off the
// Dispatcher's hands for the duration of the wait and re-enters the
// ready queue once unblocked. An external Runtime.Exit(pid) against
// this same pid also unblocks it immediately, reporting
// ErrNoSuchProcess since the pcb is gone by the time Receive would
// otherwise return.
func (p *Process) Receive(ctx context.Context, timeout time.Duration) (Mailslot, error) {
	ctrl := p.rt.ctrlFor(p.pid)
	if ctrl == nil {
		return Mailslot{}, ErrNoSuchProcess
	}
	ctrl.done <- reasonBlocked

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()
	go func() {
		select {
		case <-ctrl.cancel:
			cancelWait()
		case <-waitCtx.Done():
		}
	}()

	slot, err := p.rt.fabric.Receive(waitCtx, p.pid, timeout)

	select {
	case <-ctrl.cancel:
		// Runtime.Exit(pid) ended the wait; the pcb may not be reclaimed
		// yet, but it must not be requeued.
		return slot, ErrNoSuchProcess
	default:
	}

	pcb, ok := p.Self()
	if !ok {
		return slot, ErrNoSuchProcess
	}
	core := p.rt.coreByID(pcb.OwnerCore())
	_ = core.Requeue(pcb, pcb.Priority())
	p.waitAdmit(ctrl)
	return slot, err
}

// Sleep blocks for at least d, or until ctx is cancelled, using the
// Runtime's timer wheel. Like Receive, it releases the core for the
// duration of the wait.
func (p *Process) Sleep(ctx context.Context, d time.Duration) error {
	ctrl := p.rt.ctrlFor(p.pid)
	if ctrl == nil {
		return ErrNoSuchProcess
	}
	pcb, ok := p.Self()
	if !ok {
		return ErrNoSuchProcess
	}

	deadline := time.Now().Add(d)
	fired := make(chan struct{}, 1)
	token := p.rt.timers.Add(deadline, func(TimerToken) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	pcb.mu.Lock()
	pcb.blockedOn = BlockedOn{Kind: BlockTimer, Deadline: deadline, Token: token}
	pcb.state = StateWaiting
	pcb.mu.Unlock()

	ctrl.done <- reasonBlocked

	var err error
	select {
	case <-fired:
	case <-ctx.Done():
		_ = p.rt.timers.Cancel(token)
		err = ctx.Err()
	case <-ctrl.cancel:
		// Runtime.Exit(pid) reached us first; the timer entry is stale
		// and will be dropped lazily when it fires. Nothing left to
		// requeue.
		_ = p.rt.timers.Cancel(token)
		return ErrNoSuchProcess
	}

	core := p.rt.coreByID(pcb.OwnerCore())
	_ = core.Requeue(pcb, pcb.Priority())
	p.waitAdmit(ctrl)
	return err
}

// Exit terminates this process with reason, unwinding out of entry
// regardless of call depth. It must only be called from within the
// process's own entry function. Charges BIFExitCost
// first since the unwind itself is the BIF call being billed; the
// charge is best-effort (the process is terminating regardless of
// whether its budget goes negative).
func (p *Process) Exit(reason string) {
	if pcb, ok := p.Self(); ok {
		p.rt.coreByID(pcb.OwnerCore()).Charge(BIFExitCost)
	}
	panic(exitSignal{reason: reason})
}

// Spawn creates a child process from inside a running one: it charges
// BIFSpawnCost against the caller, yields first if that charge
// exhausted the caller's reduction budget, and then delegates to
// Runtime.Spawn. Host code that spawns from outside any process (e.g.
// bootstrapping the first processes) should call Runtime.Spawn
// directly, which charges nothing since there is no caller budget to
// charge.
func (p *Process) Spawn(entry EntryFunc, priority Priority, affinityMask uint64, stackSize, heapSize uintptr) (*Process, error) {
	p.Charge(BIFSpawnCost)
	return p.rt.Spawn(entry, priority, affinityMask, stackSize, heapSize)
}
