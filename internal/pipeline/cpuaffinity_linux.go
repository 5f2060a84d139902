//go:build linux

package pipeline

import "golang.org/x/sys/unix"

// bindToCore pins the calling OS thread to coreID, matching
// original_source's cpu_affinity::bind_to_core (ported from the
// core_affinity crate to golang.org/x/sys/unix.SchedSetaffinity, the
// direct syscall equivalent on Linux).
func bindToCore(coreID int) bool {
	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return false
	}
	return true
}
