//go:build !linux

package pipeline

// bindToCore is a documented no-op on platforms without
// SchedSetaffinity; the worker still runs, just without pinning.
func bindToCore(coreID int) bool {
	return false
}
