package session

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/log"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/report"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/tail"
)

type TailOptions struct {
	// Interval is both the poll period and the minimum time between a
	// notification-triggered check and the one before it. Zero disables both.
	Interval time.Duration

	Decoding tail.Decoding
}

// TailSession reports lines appended to a single file.
type TailSession struct {
	path string

	opts TailOptions

	report report.LineReporter

	// mu protects access to the fields below.
	mu sync.Mutex

	tr *tail.Tracker

	guard guard

	checks, reports uint64
}

var _ Checker = (*TailSession)(nil)

// NewTailSession starts tailing path from its current end.
// The file does not need to exist yet.
func NewTailSession(path string, opts TailOptions, r report.LineReporter) *TailSession {
	path = filepath.Clean(path)

	return &TailSession{
		path: path,
		opts: opts,

		report: r,

		tr: tail.NewTracker(path, tail.Options{Decoding: opts.Decoding}),

		guard: guard{interval: opts.Interval, now: time.Now},
	}
}

// Check never fails: read errors are logged and the same bytes are
// tried again by the next check.
func (s *TailSession) Check(ctx context.Context) bool {
	return s.check(ctx, false)
}

func (s *TailSession) Poll(ctx context.Context) bool {
	return s.check(ctx, true)
}

func (s *TailSession) check(ctx context.Context, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guard.due(force) {
		return false
	}

	s.checks++

	lines, err := s.tr.Read()

	if err != nil {
		log.Debug(ctx, "cannot read new lines", slog.Any("error", err))

		return false
	}

	if len(lines) == 0 {
		return false
	}

	s.reports++

	s.report.ReportLines(lines)

	return true
}

// Relevant accepts notifications about the tailed file only, not about
// its siblings in the same directory.
func (s *TailSession) Relevant(path string) bool {
	return filepath.Clean(path) == s.path
}

func (s *TailSession) Interval() time.Duration {
	return s.opts.Interval
}

func (s *TailSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Mode: "tail",
		Path: s.path,

		Offset: s.tr.Offset(),

		Checks:  s.checks,
		Reports: s.reports,

		LastCheck: s.guard.last,
	}
}
