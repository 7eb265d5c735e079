package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stackmind/svcup/internal/registry"
	"github.com/stackmind/svcup/internal/service"
	"github.com/stackmind/svcup/internal/store"
)

// --- fakes ---

type fakePorts struct {
	bound  map[uint16]bool
	owners map[uint16]int
}

func newFakePorts() *fakePorts {
	return &fakePorts{bound: make(map[uint16]bool), owners: make(map[uint16]int)}
}

func (f *fakePorts) Bound(p uint16) bool   { return f.bound[p] }
func (f *fakePorts) OwnerPid(p uint16) int { return f.owners[p] }

type fakeProcs struct {
	alive      map[int]bool
	terminated []int
	killed     []int
	// termWorks controls whether SIGTERM actually stops the process.
	termWorks bool
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{alive: make(map[int]bool), termWorks: true}
}

func (f *fakeProcs) Alive(pid int) bool { return f.alive[pid] }

func (f *fakeProcs) Terminate(pid int) error {
	f.terminated = append(f.terminated, pid)
	if f.termWorks {
		f.alive[pid] = false
	}
	return nil
}

func (f *fakeProcs) Kill(pid int) error {
	f.killed = append(f.killed, pid)
	f.alive[pid] = false
	return nil
}

type fakeHealth struct{ up map[string]bool }

func (f *fakeHealth) Reachable(url string) bool { return f.up[url] }

type fakeLauncher struct {
	nextPid  int
	launched []string
	// failFor makes Launch error for the named services.
	failFor map[string]bool
	// dead makes the launched pid immediately dead (exits within grace).
	dead  map[string]bool
	procs *fakeProcs
	ports *fakePorts
	table map[string]uint16
}

func (f *fakeLauncher) Launch(spec service.Spec) (int, error) {
	f.launched = append(f.launched, spec.Name)
	if f.failFor[spec.Name] {
		return 0, errors.New("exec: no such file")
	}
	f.nextPid++
	pid := f.nextPid + 1000
	if !f.dead[spec.Name] {
		f.procs.alive[pid] = true
		f.ports.bound[spec.Port] = true
		f.ports.owners[spec.Port] = pid
	}
	return pid, nil
}

// --- harness ---

type harness struct {
	sup      *Supervisor
	reg      *registry.Registry
	ports    *fakePorts
	procs    *fakeProcs
	health   *fakeHealth
	launcher *fakeLauncher
}

func newHarness(t *testing.T, specs []service.Spec) *harness {
	t.Helper()
	table, err := service.NewTable(specs)
	require.NoError(t, err)
	reg := registry.New(t.TempDir())
	h := &harness{
		reg:    reg,
		ports:  newFakePorts(),
		procs:  newFakeProcs(),
		health: &fakeHealth{up: make(map[string]bool)},
	}
	h.launcher = &fakeLauncher{failFor: map[string]bool{}, dead: map[string]bool{}, procs: h.procs, ports: h.ports}
	h.sup = New(table, reg)
	h.sup.SetProbes(h.ports, h.procs, h.health)
	h.sup.SetLauncher(h.launcher)
	return h
}

func testSpec(name string, port uint16) service.Spec {
	return service.Spec{
		Name:       name,
		Command:    "sleep 60",
		Port:       port,
		HealthURL:  "http://127.0.0.1/" + name,
		StartGrace: 20 * time.Millisecond,
		StopWait:   20 * time.Millisecond,
	}
}

// --- start ---

func TestStartThenAlreadyRunning(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})

	res := h.sup.Start("a")
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeStarted, res.Outcome)
	require.Greater(t, res.PID, 0)

	pid, err := h.reg.Read("a")
	require.NoError(t, err)
	require.Equal(t, res.PID, pid)

	// Second start sees the bound port and does not launch again.
	res2 := h.sup.Start("a")
	require.Equal(t, OutcomeAlreadyRunning, res2.Outcome)
	require.NoError(t, res2.Err)
	require.Len(t, h.launcher.launched, 1)
}

func TestStartUnknownService(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	res := h.sup.Start("nope")
	require.ErrorIs(t, res.Err, ErrUnknownService)
}

func TestStartLaunchError(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	h.launcher.failFor["a"] = true

	res := h.sup.Start("a")
	require.Equal(t, OutcomeLaunchFailed, res.Outcome)
	require.Error(t, res.Err)
	require.True(t, res.Failed())

	_, err := h.reg.Read("a")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
}

func TestStartDiesWithinGrace(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	h.launcher.dead["a"] = true

	res := h.sup.Start("a")
	require.Equal(t, OutcomeLaunchFailed, res.Outcome)
	require.Error(t, res.Err)

	// A launch later judged failed leaves no pid behind.
	_, err := h.reg.Read("a")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
}

// --- stop ---

func TestStopRunning(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	res := h.sup.Start("a")
	require.Equal(t, OutcomeStarted, res.Outcome)
	h.ports.bound[9001] = false // fake: port released on stop

	res = h.sup.Stop("a")
	require.Equal(t, OutcomeStopped, res.Outcome)
	require.NoError(t, res.Err)
	require.Contains(t, h.procs.terminated, res.PID)

	_, err := h.reg.Read("a")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
}

func TestStopWithoutEntry(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	res := h.sup.Stop("a")
	require.Equal(t, OutcomeNotRunning, res.Outcome)
	require.NoError(t, res.Err)
	require.False(t, res.Failed())
}

func TestStopStaleHandle(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	require.NoError(t, h.reg.Record("a", 4242)) // pid never alive in the fake

	res := h.sup.Stop("a")
	require.Equal(t, OutcomeStaleHandle, res.Outcome)
	require.NoError(t, res.Err)

	_, err := h.reg.Read("a")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
}

func TestStopCorruptEntryDegradesToNotRunning(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	require.NoError(t, os.WriteFile(filepath.Join(h.reg.Dir(), "a"), []byte("not-a-pid"), 0o600))

	res := h.sup.Stop("a")
	require.Equal(t, OutcomeNotRunning, res.Outcome)
	require.NoError(t, res.Err)

	// The corrupt entry is gone afterwards.
	_, err := h.reg.Read("a")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
}

func TestStopEscalatesToKill(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	h.procs.termWorks = false
	res := h.sup.Start("a")
	require.Equal(t, OutcomeStarted, res.Outcome)

	res = h.sup.Stop("a")
	require.Equal(t, OutcomeStopped, res.Outcome)
	require.Contains(t, h.procs.terminated, res.PID)
	require.Contains(t, h.procs.killed, res.PID)
}

func TestStopUnknownService(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	res := h.sup.Stop("nope")
	require.ErrorIs(t, res.Err, ErrUnknownService)
}

// --- status ---

func TestStatusClassification(t *testing.T) {
	spec := testSpec("a", 9001)
	h := newHarness(t, []service.Spec{spec})

	st, err := h.sup.Status("a")
	require.NoError(t, err)
	require.Equal(t, StatusOffline, st.Class)

	h.ports.bound[9001] = true
	st, err = h.sup.Status("a")
	require.NoError(t, err)
	require.Equal(t, StatusDegraded, st.Class)

	h.health.up[spec.HealthURL] = true
	st, err = h.sup.Status("a")
	require.NoError(t, err)
	require.Equal(t, StatusOnline, st.Class)
}

func TestStatusIsAPureRead(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	require.NoError(t, h.reg.Record("a", 4242)) // dead pid

	_, err := h.sup.Status("a")
	require.NoError(t, err)

	// Status must not clear the stale entry; only stop does.
	pid, err := h.reg.Read("a")
	require.NoError(t, err)
	require.Equal(t, 4242, pid)
}

// --- bulk ---

func TestStartAllFailSoft(t *testing.T) {
	specs := []service.Spec{
		testSpec("a", 9001), testSpec("b", 9002), testSpec("c", 9003), testSpec("d", 9004),
	}
	h := newHarness(t, specs)
	h.launcher.failFor["b"] = true

	results, failed := h.sup.StartAll()
	require.True(t, failed)
	require.Len(t, results, 4)

	// Declaration order preserved, one failure, three started.
	var failures int
	for i, res := range results {
		require.Equal(t, specs[i].Name, res.Name)
		if res.Failed() {
			failures++
		} else {
			require.Equal(t, OutcomeStarted, res.Outcome)
		}
	}
	require.Equal(t, 1, failures)
}

func TestStopAllKillsResidualListener(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})

	// No registry entry, but something else took the port.
	h.ports.bound[9001] = true
	h.ports.owners[9001] = 7777

	results, failed := h.sup.StopAll()
	require.False(t, failed)
	require.Equal(t, OutcomeNotRunning, results[0].Outcome)
	require.Contains(t, h.procs.killed, 7777)
}

// Scenario from the operating manual: two services, one killed out-of-band.
func TestTwoServiceLifecycle(t *testing.T) {
	specA := testSpec("a", 9001)
	specB := testSpec("b", 9002)
	h := newHarness(t, []service.Spec{specA, specB})

	results, failed := h.sup.StartAll()
	require.False(t, failed)
	require.Equal(t, OutcomeStarted, results[0].Outcome)
	require.Equal(t, OutcomeStarted, results[1].Outcome)

	h.health.up[specA.HealthURL] = true
	h.health.up[specB.HealthURL] = true
	sts := h.sup.StatusAll()
	require.Equal(t, StatusOnline, sts[0].Class)
	require.Equal(t, StatusOnline, sts[1].Class)

	// Kill A out-of-band.
	pidA := results[0].PID
	h.procs.alive[pidA] = false
	h.ports.bound[specA.Port] = false
	delete(h.ports.owners, specA.Port)
	h.health.up[specA.HealthURL] = false

	sts = h.sup.StatusAll()
	require.Equal(t, StatusOffline, sts[0].Class)
	require.Equal(t, StatusOnline, sts[1].Class)

	h.ports.bound[specB.Port] = false // fake: released on stop
	results, failed = h.sup.StopAll()
	require.False(t, failed)
	require.Equal(t, OutcomeStaleHandle, results[0].Outcome)
	require.Equal(t, OutcomeStopped, results[1].Outcome)

	_, err := h.reg.Read("a")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
	_, err = h.reg.Read("b")
	require.ErrorIs(t, err, registry.ErrNotRecorded)
}

// --- history ---

type memStore struct{ events []store.Event }

func (m *memStore) EnsureSchema(context.Context) error { return nil }
func (m *memStore) Append(_ context.Context, ev store.Event) error {
	m.events = append(m.events, ev)
	return nil
}
func (m *memStore) Recent(context.Context, string, int) ([]store.Event, error) {
	return m.events, nil
}
func (m *memStore) Close() error { return nil }

func TestOperationsAreRecorded(t *testing.T) {
	h := newHarness(t, []service.Spec{testSpec("a", 9001)})
	st := &memStore{}
	require.NoError(t, h.sup.SetStore(st))

	h.sup.Start("a")
	h.ports.bound[9001] = false
	h.sup.Stop("a")

	require.Len(t, st.events, 2)
	require.Equal(t, "start", st.events[0].Op)
	require.Equal(t, string(OutcomeStarted), st.events[0].Outcome)
	require.Equal(t, "stop", st.events[1].Op)
	require.Equal(t, string(OutcomeStopped), st.events[1].Outcome)
}
