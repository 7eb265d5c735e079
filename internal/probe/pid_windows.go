//go:build windows

package probe

// No cheap signal-0 equivalent on Windows; the gopsutil path is authoritative.
func pidAliveFallback(_ int) bool { return false }
