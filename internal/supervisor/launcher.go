package supervisor

import (
	"os"

	"github.com/stackmind/svcup/internal/logger"
	"github.com/stackmind/svcup/internal/service"
)

// Launcher starts a service process detached from the caller's lifetime and
// returns its pid. Abstracted so orchestration tests can fake launches.
type Launcher interface {
	Launch(spec service.Spec) (int, error)
}

// execLauncher is the real Launcher. The child gets its own process group so
// it survives the supervisor invocation and terminal signals, and inherits a
// plain append-file descriptor for combined stdout/stderr.
type execLauncher struct{}

func (execLauncher) Launch(spec service.Spec) (int, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = detachedSysProcAttr()

	var sink *os.File
	if spec.LogPath != "" {
		f, err := logger.OpenServiceLog(spec.LogPath)
		if err != nil {
			return 0, err
		}
		sink = f
	} else {
		f, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return 0, err
		}
		sink = f
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	if err := cmd.Start(); err != nil {
		_ = sink.Close()
		return 0, err
	}
	pid := cmd.Process.Pid
	// The child holds its own copy of the sink fd.
	_ = sink.Close()
	// Reap if the child exits while this invocation is still alive, so the
	// grace-period liveness check does not see a zombie. Once this process
	// exits, the child is reparented and reaped by init.
	go func() { _ = cmd.Wait() }()
	return pid, nil
}
