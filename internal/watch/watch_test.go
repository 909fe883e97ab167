package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

type call struct {
	kind string
	path string
}

// spy records every notification it receives.
type spy struct {
	mu    sync.Mutex
	calls []call
}

func (s *spy) record(kind, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call{kind: kind, path: path})
}

func (s *spy) Created(path string)  { s.record("created", path) }
func (s *spy) Modified(path string) { s.record("modified", path) }
func (s *spy) Moved(path string)    { s.record("moved", path) }
func (s *spy) Deleted(path string)  { s.record("deleted", path) }

func (s *spy) has(kind, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.calls {
		if c.kind == kind && c.path == path {
			return true
		}
	}

	return false
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{op: fsnotify.Create, want: "created"},
		{op: fsnotify.Write, want: "modified"},
		{op: fsnotify.Chmod, want: "modified"},
		{op: fsnotify.Rename, want: "moved"},
		{op: fsnotify.Remove, want: "deleted"},
	}

	for _, tt := range tests {
		s := &spy{}

		dispatch(s, fsnotify.Event{Name: "/x", Op: tt.op})

		if !s.has(tt.want, "/x") {
			t.Errorf("invalid dispatch (op=%v): got=%v; want=%s", tt.op, s.calls, tt.want)
		}
	}
}

func TestWatchTreeNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher()

	if err != nil {
		t.Fatal(err)
	}

	defer w.Close()

	if err := w.WatchTree(path); !errors.Is(err, ErrNotDir) {
		t.Errorf("invalid error: got=%v; want=%v", err, ErrNotDir)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		if cond() {
			return true
		}

		time.Sleep(10 * time.Millisecond)
	}

	return false
}

func TestListenTree(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher()

	if err != nil {
		t.Fatal(err)
	}

	defer w.Close()

	if err := w.WatchTree(root); err != nil {
		t.Fatalf("cannot watch tree: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &spy{}

	done := make(chan error, 1)

	go func() {
		done <- w.Listen(ctx, s)
	}()

	sub := filepath.Join(root, "sub")

	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	if !eventually(t, func() bool { return s.has("created", sub) }) {
		t.Fatalf("should notify about new directory")
	}

	// the new directory is watched too.
	nested := filepath.Join(sub, "nested.txt")

	if !eventually(t, func() bool {
		_ = os.WriteFile(nested, []byte("x"), 0o644)

		return s.has("created", nested) || s.has("modified", nested)
	}) {
		t.Errorf("should notify about file in new directory")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("listen should return cleanly: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("listen should return after cancel")
	}
}

func TestListenFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.log")

	w, err := NewWatcher()

	if err != nil {
		t.Fatal(err)
	}

	defer w.Close()

	// the file does not exist yet.
	if err := w.WatchFile(target); err != nil {
		t.Fatalf("cannot watch file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &spy{}

	go func() {
		_ = w.Listen(ctx, s)
	}()

	if err := os.WriteFile(target, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !eventually(t, func() bool { return s.has("created", target) || s.has("modified", target) }) {
		t.Errorf("should notify about target file")
	}
}
