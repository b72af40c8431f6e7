//go:build !linux

package sched

import "errors"

// SetOSAffinity requires sched_setaffinity, which only Linux exposes.
// Other platforms get the scheduler's own placement bookkeeping but no
// OS-thread pinning.
func SetOSAffinity(cores []int) error {
	return errors.New("sched: OS thread affinity is only supported on linux")
}
