// Package affinity provides a platform-neutral API for pinning the calling
// OS thread to a logical CPU core. Platform-specific implementations live in
// separate files (affinity_linux.go, affinity_windows.go, ...) guarded by
// build tags.
package affinity

// SetAffinity pins the current OS thread to cpuID on supported platforms.
// Callers must call runtime.LockOSThread before SetAffinity so the pin
// outlives the goroutine scheduler moving work between threads.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}
