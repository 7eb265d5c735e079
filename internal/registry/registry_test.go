package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordReadClear(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Record("web", 1234); err != nil {
		t.Fatalf("record: %v", err)
	}
	pid, err := r.Read("web")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != 1234 {
		t.Fatalf("expected 1234, got %d", pid)
	}
	if err := r.Clear("web"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := r.Read("web"); !errors.Is(err, ErrNotRecorded) {
		t.Fatalf("expected ErrNotRecorded after clear, got %v", err)
	}
}

func TestReadAbsent(t *testing.T) {
	r := New(t.TempDir())
	if _, err := r.Read("ghost"); !errors.Is(err, ErrNotRecorded) {
		t.Fatalf("expected ErrNotRecorded, got %v", err)
	}
}

func TestClearAbsentIsNoError(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Clear("ghost"); err != nil {
		t.Fatalf("clear absent: %v", err)
	}
}

func TestCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	for _, content := range []string{"", "garbage", "-5", "12 34"} {
		if err := os.WriteFile(filepath.Join(dir, "web"), []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := r.Read("web"); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("content %q: expected ErrCorrupt, got %v", content, err)
		}
	}
}

func TestRecordOverwrites(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Record("web", 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.Record("web", 20); err != nil {
		t.Fatalf("record again: %v", err)
	}
	pid, err := r.Read("web")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != 20 {
		t.Fatalf("expected 20, got %d", pid)
	}
}

func TestRecordRejectsBadInput(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Record("web", 0); err == nil {
		t.Fatal("expected error for pid 0")
	}
	for _, name := range []string{"", "../escape", "a/b", `a\b`} {
		if err := r.Record(name, 1); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
		if _, err := r.Read(name); err == nil {
			t.Fatalf("expected read error for name %q", name)
		}
	}
}

// The write path must never leave a half-written file behind under the
// service's name; only complete entries or nothing.
func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	if err := r.Record("web", 42); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
}
