package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/log"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/report"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/snapshot"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/watch"
)

type TreeOptions struct {
	// Interval is both the poll period and the minimum time between a
	// notification-triggered check and the one before it. Zero disables both.
	Interval time.Duration

	// Ignore is passed on to [snapshot.Options].
	Ignore []string
}

// TreeSession reports entries added to or removed from a directory tree.
type TreeSession struct {
	root string

	opts TreeOptions

	report report.TreeReporter

	// mu protects access to the fields below.
	mu sync.Mutex

	// prev is the snapshot taken by the last successful check.
	prev snapshot.Snapshot

	guard guard

	checks, reports uint64
}

var _ Checker = (*TreeSession)(nil)

// NewTreeSession takes the initial snapshot of root. It fails with
// [watch.ErrNotDir] if root does not exist or is not a directory.
func NewTreeSession(root string, opts TreeOptions, r report.TreeReporter) (*TreeSession, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)

	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("invalid folder path %s: %w", root, watch.ErrNotDir)
	}

	prev, err := snapshot.Take(root, opts.snapshot())

	if err != nil {
		return nil, err
	}

	return &TreeSession{
		root: root,
		opts: opts,

		report: r,

		prev: prev,

		guard: guard{interval: opts.Interval, now: time.Now},
	}, nil
}

func (o TreeOptions) snapshot() snapshot.Options {
	return snapshot.Options{Ignore: o.Ignore}
}

func (s *TreeSession) Check(ctx context.Context) bool {
	return s.check(ctx, false)
}

func (s *TreeSession) Poll(ctx context.Context) bool {
	return s.check(ctx, true)
}

func (s *TreeSession) check(ctx context.Context, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guard.due(force) {
		return false
	}

	s.checks++

	cur, err := snapshot.Take(s.root, s.opts.snapshot())

	if err != nil {
		log.Debug(ctx, "cannot take snapshot; keeping previous one", slog.Any("error", err))

		return false
	}

	res := snapshot.Diff(s.prev, cur)

	s.prev = cur

	if res.Empty() {
		return false
	}

	s.reports++

	s.report.ReportTree(res.Added, res.Removed)

	return true
}

func (s *TreeSession) Relevant(path string) bool {
	return within(s.root, path)
}

func (s *TreeSession) Interval() time.Duration {
	return s.opts.Interval
}

func (s *TreeSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Mode: "tree",
		Path: s.root,

		Entries: s.prev.Len(),

		Checks:  s.checks,
		Reports: s.reports,

		LastCheck: s.guard.last,
	}
}
