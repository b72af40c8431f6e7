//go:build linux

package sched

import "golang.org/x/sys/unix"

// SetOSAffinity pins the calling OS thread to the given core set using
// sched_setaffinity, so a Dispatcher goroutine that has called
// runtime.LockOSThread actually executes on the cores its scheduling
// decisions assume, rather than wherever the OS scheduler happens to
// place it.
func SetOSAffinity(cores []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}
