package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stackmind/svcup/internal/metrics"
	"github.com/stackmind/svcup/internal/probe"
	"github.com/stackmind/svcup/internal/registry"
	"github.com/stackmind/svcup/internal/service"
	"github.com/stackmind/svcup/internal/store"
)

const (
	defaultStartGrace = 2 * time.Second
	defaultStopWait   = 5 * time.Second
	killReapWait      = 500 * time.Millisecond
	pollInterval      = 50 * time.Millisecond
)

// Supervisor orchestrates start/stop/status over a fixed descriptor table.
// Each CLI invocation builds one Supervisor, runs one operation and exits;
// the pid registry on disk is the only state shared between invocations and
// is reconciled against the live OS on every read, never trusted blindly.
type Supervisor struct {
	table    *service.Table
	reg      *registry.Registry
	ports    probe.PortProbe
	procs    probe.Liveness
	health   probe.Health
	launcher Launcher
	log      *slog.Logger
	st       store.Store
}

// New builds a Supervisor with the real OS probes.
func New(table *service.Table, reg *registry.Registry) *Supervisor {
	return &Supervisor{
		table:    table,
		reg:      reg,
		ports:    probe.SystemPortProbe{},
		procs:    probe.SystemLiveness{},
		health:   probe.HTTPHealth{},
		launcher: execLauncher{},
		log:      slog.Default(),
	}
}

func (s *Supervisor) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetProbes replaces the OS capabilities, primarily for tests. Nil arguments
// leave the current implementation in place.
func (s *Supervisor) SetProbes(ports probe.PortProbe, procs probe.Liveness, health probe.Health) {
	if ports != nil {
		s.ports = ports
	}
	if procs != nil {
		s.procs = procs
	}
	if health != nil {
		s.health = health
	}
}

func (s *Supervisor) SetLauncher(l Launcher) {
	if l != nil {
		s.launcher = l
	}
}

// SetStore attaches an operation-history store and ensures its schema.
func (s *Supervisor) SetStore(st store.Store) error {
	s.st = st
	if st == nil {
		return nil
	}
	return st.EnsureSchema(context.Background())
}

// Table returns the descriptor table.
func (s *Supervisor) Table() *service.Table { return s.table }

// Start launches one service.
//
// The port check and the launch are not atomic: another process can grab the
// port in between. That window is accepted for a single-operator local tool
// and surfaces, at worst, as a failed bind logged by the service itself.
func (s *Supervisor) Start(name string) Result {
	spec, ok := s.table.Lookup(name)
	if !ok {
		return Result{Name: name, Err: fmt.Errorf("%w: %s", ErrUnknownService, name)}
	}
	if s.ports.Bound(spec.Port) {
		s.log.Info("already running", "service", name, "port", spec.Port)
		res := Result{Name: name, Outcome: OutcomeAlreadyRunning}
		s.record("start", res)
		return res
	}

	pid, err := s.launcher.Launch(spec)
	if err != nil {
		s.log.Error("launch failed", "service", name, "error", err)
		metrics.IncLaunchFailure(name)
		res := Result{Name: name, Outcome: OutcomeLaunchFailed, LogPath: spec.LogPath,
			Err: fmt.Errorf("launch %s: %w", name, err)}
		s.record("start", res)
		return res
	}
	if err := s.reg.Record(name, pid); err != nil {
		// The process is up; losing the bookkeeping write must not kill it.
		s.log.Warn("pid not recorded", "service", name, "pid", pid, "error", err)
	}

	if err := s.enforceGrace(pid, spec.StartGrace); err != nil {
		_ = s.reg.Clear(name)
		s.log.Error("service died within grace period", "service", name, "pid", pid, "log", spec.LogPath)
		metrics.IncLaunchFailure(name)
		res := Result{Name: name, Outcome: OutcomeLaunchFailed, PID: pid, LogPath: spec.LogPath,
			Err: fmt.Errorf("service %s: %w (see %s)", name, err, spec.LogPath)}
		s.record("start", res)
		return res
	}

	s.log.Info("started", "service", name, "pid", pid, "port", spec.Port)
	metrics.IncStart(name)
	res := Result{Name: name, Outcome: OutcomeStarted, PID: pid, LogPath: spec.LogPath}
	s.record("start", res)
	return res
}

// enforceGrace waits out the grace period, failing early if the pid dies.
func (s *Supervisor) enforceGrace(pid int, grace time.Duration) error {
	if grace <= 0 {
		grace = defaultStartGrace
	}
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !s.procs.Alive(pid) {
			return fmt.Errorf("exited within %s of launch", grace)
		}
		time.Sleep(pollInterval)
	}
	if !s.procs.Alive(pid) {
		return fmt.Errorf("exited within %s of launch", grace)
	}
	return nil
}

// Stop terminates one service by its recorded pid. A missing entry, a
// corrupt entry and a dead pid are all steady-state conditions, not errors.
func (s *Supervisor) Stop(name string) Result {
	spec, ok := s.table.Lookup(name)
	if !ok {
		return Result{Name: name, Err: fmt.Errorf("%w: %s", ErrUnknownService, name)}
	}

	pid, err := s.reg.Read(name)
	switch {
	case errors.Is(err, registry.ErrNotRecorded):
		res := Result{Name: name, Outcome: OutcomeNotRunning}
		s.record("stop", res)
		return res
	case errors.Is(err, registry.ErrCorrupt):
		s.log.Warn("registry entry unreadable, treating as not running", "service", name, "error", err)
		_ = s.reg.Clear(name)
		res := Result{Name: name, Outcome: OutcomeNotRunning, Detail: "registry entry was corrupt"}
		s.record("stop", res)
		return res
	case err != nil:
		return Result{Name: name, Err: err}
	}

	if !s.procs.Alive(pid) {
		s.log.Info("recorded pid no longer alive", "service", name, "pid", pid)
		_ = s.reg.Clear(name)
		metrics.IncStaleHandle(name)
		res := Result{Name: name, Outcome: OutcomeStaleHandle, PID: pid}
		s.record("stop", res)
		return res
	}

	if err := s.procs.Terminate(pid); err != nil {
		s.log.Warn("terminate failed, escalating", "service", name, "pid", pid, "error", err)
	}
	if !s.waitDead(pid, spec.StopWait) {
		s.log.Warn("did not exit in time, killing", "service", name, "pid", pid)
		_ = s.procs.Kill(pid)
		s.waitDead(pid, killReapWait)
	}
	_ = s.reg.Clear(name)
	s.log.Info("stopped", "service", name, "pid", pid)
	metrics.IncStop(name)
	res := Result{Name: name, Outcome: OutcomeStopped, PID: pid}
	s.record("stop", res)
	return res
}

// waitDead polls until the pid is gone or the bounded wait elapses.
func (s *Supervisor) waitDead(pid int, wait time.Duration) bool {
	if wait <= 0 {
		wait = defaultStopWait
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if !s.procs.Alive(pid) {
			return true
		}
		time.Sleep(pollInterval)
	}
	return !s.procs.Alive(pid)
}

// Status classifies one service. It never mutates the registry.
func (s *Supervisor) Status(name string) (Status, error) {
	spec, ok := s.table.Lookup(name)
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	st := Status{Name: name, Port: spec.Port}
	if pid, err := s.reg.Read(name); err == nil {
		st.PID = pid
	}
	switch {
	case spec.HealthURL != "" && s.health.Reachable(spec.HealthURL):
		st.Class = StatusOnline
	case s.ports.Bound(spec.Port):
		st.Class = StatusDegraded
	default:
		st.Class = StatusOffline
	}
	return st, nil
}

// StartAll starts every service in declaration order. One broken service
// never blocks the rest; the second return is true if any member failed.
func (s *Supervisor) StartAll() ([]Result, bool) {
	var failed bool
	results := make([]Result, 0, s.table.Len())
	for _, name := range s.table.Names() {
		res := s.Start(name)
		failed = failed || res.Failed()
		results = append(results, res)
	}
	return results, failed
}

// StopAll stops every service in declaration order, fail-soft like StartAll.
// After each pid-based stop it re-probes the configured port and kills any
// residual listener. That sweep can take down an unrelated process that
// happened to bind the port after the original service died; accepted risk
// for single-operator local use, logged before acting.
func (s *Supervisor) StopAll() ([]Result, bool) {
	var failed bool
	results := make([]Result, 0, s.table.Len())
	for _, spec := range s.table.Specs() {
		res := s.Stop(spec.Name)
		if s.ports.Bound(spec.Port) {
			if pid := s.ports.OwnerPid(spec.Port); pid > 0 {
				s.log.Warn("port still bound after stop, killing residual listener",
					"service", spec.Name, "port", spec.Port, "pid", pid)
				_ = s.procs.Kill(pid)
			} else {
				s.log.Warn("port still bound after stop, listener pid unknown",
					"service", spec.Name, "port", spec.Port)
			}
		}
		failed = failed || res.Failed()
		results = append(results, res)
	}
	return results, failed
}

// StatusAll classifies every service in declaration order.
func (s *Supervisor) StatusAll() []Status {
	out := make([]Status, 0, s.table.Len())
	for _, name := range s.table.Names() {
		st, err := s.Status(name)
		if err != nil {
			continue // names come from the table itself; Lookup cannot miss
		}
		out = append(out, st)
	}
	return out
}

// record appends to the history store, best effort.
func (s *Supervisor) record(op string, res Result) {
	if s.st == nil {
		return
	}
	ev := store.Event{
		Name:    res.Name,
		Op:      op,
		Outcome: string(res.Outcome),
		PID:     res.PID,
		At:      time.Now().UTC(),
	}
	if res.Err != nil {
		ev.Detail = res.Err.Error()
	} else if res.Detail != "" {
		ev.Detail = res.Detail
	}
	if err := s.st.Append(context.Background(), ev); err != nil {
		s.log.Warn("history append failed", "service", res.Name, "error", err)
	}
}
