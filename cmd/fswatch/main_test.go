package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/config"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/report"
)

func TestResolvePath(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())

	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	// a non-terminal input is read without prompting.
	got, err := resolvePath("", strings.NewReader("  "+dir+"  \n"), &out)

	if err != nil {
		t.Fatalf("cannot resolve path: %v", err)
	}

	if got != dir {
		t.Errorf("invalid path: got=%q; want=%q", got, dir)
	}

	if out.Len() != 0 {
		t.Errorf("should not prompt for non-terminal input: got=%q", out.String())
	}

	if _, err := resolvePath("", strings.NewReader(""), &out); err == nil {
		t.Errorf("should fail without any path")
	}
}

func TestResolvePathHome(t *testing.T) {
	home, err := os.UserHomeDir()

	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := resolvePath("~/logs/app.log", nil, nil)

	if err != nil {
		t.Fatalf("cannot resolve path: %v", err)
	}

	if want := filepath.Join(home, "logs", "app.log"); got != want {
		t.Errorf("invalid path: got=%q; want=%q", got, want)
	}
}

func TestPickMode(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		mode, path string
		want       string
	}{
		{mode: config.ModeAuto, path: dir, want: config.ModeTree},
		{mode: config.ModeAuto, path: file, want: config.ModeTail},
		{mode: config.ModeAuto, path: filepath.Join(dir, "later.log"), want: config.ModeTail},
		{mode: config.ModeTail, path: dir, want: config.ModeTail},
		{mode: config.ModeTree, path: file, want: config.ModeTree},
	}

	for _, tt := range tests {
		if got := pickMode(tt.mode, tt.path); got != tt.want {
			t.Errorf("invalid mode (mode=%s; path=%s): got=%s; want=%s", tt.mode, tt.path, got, tt.want)
		}
	}
}

// fakeSubscriber records subscriptions instead of making them.
type fakeSubscriber struct {
	trees, files []string

	err error
}

func (f *fakeSubscriber) WatchTree(root string) error {
	f.trees = append(f.trees, root)

	return f.err
}

func (f *fakeSubscriber) WatchFile(path string) error {
	f.files = append(f.files, path)

	return f.err
}

func defaultConfig() config.File {
	var cfg config.File

	cfg.SetDefaults()

	return cfg
}

func TestNewSessionInvalidFolder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing"), file} {
		var out bytes.Buffer

		sub := &fakeSubscriber{}

		c, err := newSession(context.Background(), defaultConfig(), config.ModeTree, path, sub, report.NewConsole(&out), &out)

		if err != nil {
			t.Errorf("invalid folder should not be an error (path=%s): %v", path, err)
		}

		if c != nil {
			t.Errorf("should not create a session (path=%s)", path)
		}

		if got, want := out.String(), "Invalid folder path.\n"; got != want {
			t.Errorf("invalid output (path=%s): got=%q; want=%q", path, got, want)
		}

		if len(sub.trees) != 0 {
			t.Errorf("should not subscribe (path=%s): got=%q", path, sub.trees)
		}
	}
}

func TestNewSessionTree(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer

	sub := &fakeSubscriber{}

	c, err := newSession(context.Background(), defaultConfig(), config.ModeTree, dir, sub, report.NewConsole(&out), &out)

	if err != nil {
		t.Fatalf("cannot create session: %v", err)
	}

	if got := c.Status().Mode; got != "tree" {
		t.Errorf("invalid mode: got=%s; want=tree", got)
	}

	if len(sub.trees) != 1 || sub.trees[0] != dir {
		t.Errorf("should subscribe to tree: got=%q", sub.trees)
	}

	if !strings.HasPrefix(out.String(), "Watching: ") {
		t.Errorf("invalid output: got=%q", out.String())
	}
}

func TestNewSessionTailPollOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.log")

	var out bytes.Buffer

	sub := &fakeSubscriber{err: errors.New("no notifications")}

	c, err := newSession(context.Background(), defaultConfig(), config.ModeTail, path, sub, report.NewConsole(&out), &out)

	if err != nil {
		t.Fatalf("subscription failure should not be fatal: %v", err)
	}

	if got := c.Status().Mode; got != "tail" {
		t.Errorf("invalid mode: got=%s; want=tail", got)
	}

	if c.Interval() <= 0 {
		t.Errorf("tail session should poll: got=%v", c.Interval())
	}

	if !strings.Contains(out.String(), "does not exist. Waiting for it to be created...") {
		t.Errorf("should announce missing file: got=%q", out.String())
	}
}

func TestNewSessionInvalidDecoding(t *testing.T) {
	cfg := defaultConfig()
	cfg.Watch.DecodeErrors = "strict"

	var out bytes.Buffer

	if _, err := newSession(context.Background(), cfg, config.ModeTail, "app.log", &fakeSubscriber{}, report.NewConsole(&out), &out); err == nil {
		t.Errorf("should reject unknown decoding policy")
	}
}
