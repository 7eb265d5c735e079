package probe

// PortProbe reports whether a TCP port is held by a listening socket on the
// local host, regardless of which process holds it. Implementations must be
// side-effect free and safe for concurrent use.
type PortProbe interface {
	// Bound returns true if any process currently listens on port.
	Bound(port uint16) bool
	// OwnerPid returns the pid of the listener on port, or 0 when unknown.
	OwnerPid(port uint16) int
}

// Liveness answers pid-level questions and delivers signals. A pid that was
// recycled by the OS can produce a false positive from Alive; callers treat
// that as an accepted edge case, not a correctness bug.
type Liveness interface {
	Alive(pid int) bool
	Terminate(pid int) error
	Kill(pid int) error
}

// Health performs a bounded reachability check against a service URL.
// A timeout counts as unreachable, never as an error.
type Health interface {
	Reachable(url string) bool
}
