package sched

import "errors"

// Error taxonomy. Only InvariantViolation is fatal; every other
// condition is an explicit result value, never a panic or an unwind
// used for control flow.
var (
	// ErrInvalidCore is returned when a core_id is out of range.
	ErrInvalidCore = errors.New("sched: invalid core id")

	// ErrTooManyCores is returned by New when the configured online
	// core count exceeds MaxOnlineCores, the width of the affinity
	// mask bitset.
	ErrTooManyCores = errors.New("sched: online core count exceeds affinity mask width (64)")

	// ErrInvalidPriority is returned for a priority outside [MAX, LOW].
	ErrInvalidPriority = errors.New("sched: invalid priority")

	// ErrInvalidReductions is returned by SetReductions for n outside
	// [MinReductions, MaxReductions].
	ErrInvalidReductions = errors.New("sched: reduction count out of range")

	// ErrOOM is returned by Spawn when the Store cannot allocate a PCB.
	ErrOOM = errors.New("sched: process control block allocation failed")

	// ErrNoSuchProcess is returned by Send/Exit/SetAffinity for an
	// unknown or already-terminated pid.
	ErrNoSuchProcess = errors.New("sched: no such process")

	// ErrAlreadyQueued is a precondition failure on Enqueue: the PCB
	// is already linked into a queue or currently RUNNING.
	ErrAlreadyQueued = errors.New("sched: pcb already queued or running")

	// ErrNoSuchTimer is returned by Cancel for an unknown token.
	ErrNoSuchTimer = errors.New("sched: no such timer")

	// ErrInvalidAffinity is returned by SetAffinity for a mask that
	// names no online core.
	ErrInvalidAffinity = errors.New("sched: affinity mask must be non-zero")

	// ErrReceiveTimeout is returned by Receive when no message arrives
	// before the caller's deadline.
	ErrReceiveTimeout = errors.New("sched: receive timed out")
)

// InvariantViolation is fatal: it is never returned across the
// library boundary as an ordinary error. Call abort, not panic
// directly, so every fatal path goes through one place that can be
// instrumented or (in tests) recovered.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "sched: invariant violation: " + e.Msg
}

// abortFn is overridden in tests so invariant violations can be
// observed without killing the test binary.
var abortFn = func(err *InvariantViolation) {
	panic(err)
}

func abort(msg string) {
	abortFn(&InvariantViolation{Msg: msg})
}
