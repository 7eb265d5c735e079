package supervisor

import "errors"

// Outcome classifies what a start or stop operation did for one service.
type Outcome string

const (
	// OutcomeStarted means a fresh launch survived its grace period.
	OutcomeStarted Outcome = "started"
	// OutcomeAlreadyRunning means the port was bound before launch; nothing
	// was done and the registry was not touched. Not a failure.
	OutcomeAlreadyRunning Outcome = "already-running"
	// OutcomeLaunchFailed means the command failed to start or died within
	// the grace period. The registry holds no entry afterwards.
	OutcomeLaunchFailed Outcome = "launch-failed"
	// OutcomeStopped means a live process was terminated and its registry
	// entry cleared.
	OutcomeStopped Outcome = "stopped"
	// OutcomeNotRunning means stop found no registry entry. Not a failure.
	OutcomeNotRunning Outcome = "not-running"
	// OutcomeStaleHandle means the recorded pid was no longer alive; the
	// entry was cleared. Expected after an external kill or crash.
	OutcomeStaleHandle Outcome = "stale-handle"
)

// StatusClass is the three-way status classification.
type StatusClass string

const (
	// StatusOnline: the health endpoint answered.
	StatusOnline StatusClass = "online"
	// StatusDegraded: port bound but no health answer (e.g. still warming up).
	StatusDegraded StatusClass = "running-no-health"
	// StatusOffline: nothing on the port.
	StatusOffline StatusClass = "offline"
)

// ErrUnknownService reports a name absent from the descriptor table.
var ErrUnknownService = errors.New("unknown service")

// Result is the outcome of a start or stop for one service.
type Result struct {
	Name    string  `json:"name"`
	Outcome Outcome `json:"outcome"`
	PID     int     `json:"pid,omitempty"`
	LogPath string  `json:"log_path,omitempty"`
	Err     error   `json:"-"`
	Detail  string  `json:"detail,omitempty"`
}

// Failed reports whether this result counts against the exit code.
// AlreadyRunning, NotRunning and StaleHandle are steady-state outcomes,
// not failures.
func (r Result) Failed() bool {
	return r.Err != nil || r.Outcome == OutcomeLaunchFailed
}

// Status is the classification of one service at observation time.
type Status struct {
	Name  string      `json:"name"`
	Class StatusClass `json:"class"`
	Port  uint16      `json:"port"`
	PID   int         `json:"pid,omitempty"` // last recorded pid, informational
}
