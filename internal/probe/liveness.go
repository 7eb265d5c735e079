package probe

import (
	"github.com/shirou/gopsutil/v3/process"
)

// SystemLiveness implements Liveness against the real OS process table.
// A zombie counts as dead: a quickly-exiting child that has not been reaped
// yet must not be reported as a successful start.
type SystemLiveness struct{}

func (SystemLiveness) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	if err != nil {
		return pidAliveFallback(pid)
	}
	if !ok {
		return false
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	st, err := p.Status()
	if err != nil {
		return true // exists but status unreadable; assume alive
	}
	for _, s := range st {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

func (SystemLiveness) Terminate(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

func (SystemLiveness) Kill(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}
