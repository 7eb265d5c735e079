package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Registry persists the last-known pid per service as one file per service:
// file name = service name, contents = decimal pid. The layout is the
// compatibility contract with shell tooling (kill "$(cat run/ollama)").
//
// Writes go through a temp file and rename so concurrent supervisor
// invocations never observe a half-written entry. A missing file means
// "never started or cleanly stopped"; there is no pid-0 sentinel.
type Registry struct {
	dir string
}

var (
	// ErrNotRecorded is returned when no entry exists for the service.
	ErrNotRecorded = errors.New("registry: no pid recorded")
	// ErrCorrupt is returned when an entry exists but cannot be parsed.
	// Callers degrade this to "not running"; it is never fatal.
	ErrCorrupt = errors.New("registry: unparseable pid entry")
)

func New(dir string) *Registry { return &Registry{dir: dir} }

// Dir returns the backing directory.
func (r *Registry) Dir() string { return r.dir }

// Record durably persists name->pid. The write is synced before the rename
// so the mapping survives an immediate crash of the caller.
func (r *Registry) Record(name string, pid int) error {
	if err := checkName(name); err != nil {
		return err
	}
	if pid <= 0 {
		return fmt.Errorf("registry: refusing to record pid %d for %s", pid, name)
	}
	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return fmt.Errorf("registry: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("registry: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(strconv.Itoa(pid)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("registry: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("registry: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("registry: close: %w", err)
	}
	if err := os.Rename(tmpName, r.path(name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("registry: rename: %w", err)
	}
	return nil
}

// Read returns the recorded pid for name, ErrNotRecorded when absent, or
// ErrCorrupt when the entry exists but does not parse as a positive integer.
func (r *Registry) Read(name string) (int, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(r.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRecorded
		}
		return 0, fmt.Errorf("registry: read %s: %w", name, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrCorrupt, name)
	}
	return pid, nil
}

// Clear removes the entry for name. Clearing an absent entry is not an error.
func (r *Registry) Clear(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(r.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("registry: clear %s: %w", name, err)
	}
	return nil
}

func (r *Registry) path(name string) string { return filepath.Join(r.dir, name) }

// checkName rejects names that could escape the registry directory.
// The config loader enforces the same charset; this guards direct callers.
func checkName(name string) error {
	if name == "" {
		return errors.New("registry: empty service name")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("registry: unsafe service name %q", name)
	}
	return nil
}
