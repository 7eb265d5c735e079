//go:build !windows

package probe

import (
	"errors"
	"syscall"
)

// pidAliveFallback signals the process with 0 when the process table cannot
// be read. EPERM still means the pid exists.
func pidAliveFallback(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
