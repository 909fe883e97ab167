package session

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/watch"
	"golang.org/x/sync/errgroup"
)

// Status describes the state of a session at one point in time.
type Status struct {
	Mode string `json:"mode"`
	Path string `json:"path"`

	// Offset is the byte offset of a tail session.
	Offset int64 `json:"offset,omitempty"`

	// Entries is the size of the last snapshot of a tree session.
	Entries int `json:"entries,omitempty"`

	Checks  uint64 `json:"checks"`
	Reports uint64 `json:"reports"`

	LastCheck time.Time `json:"last_check"`
}

// Checker is a watch session that can be asked to look for changes.
//
// Check must be safe to call from multiple goroutines; concurrent
// calls never report the same change twice.
type Checker interface {
	// Check looks for changes and reports them, unless the previous
	// check ran less than Interval ago.
	// Check returns true if anything was reported.
	Check(ctx context.Context) bool

	// Poll is like Check but never skipped, so that a ticker firing
	// every Interval never finds the previous check too recent.
	Poll(ctx context.Context) bool

	// Relevant reports whether a notification about path
	// should trigger a check.
	Relevant(path string) bool

	// Interval is the poll period, zero if polling is disabled.
	Interval() time.Duration

	Status() Status
}

// Run drives c from two independent sources until ctx is done:
// notifications delivered by src, and a ticker firing every c.Interval().
//
// Run closes src before it returns.
func Run(ctx context.Context, src watch.Source, c Checker) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return src.Listen(ctx, trigger{ctx: ctx, c: c})
	})

	if iv := c.Interval(); iv > 0 {
		eg.Go(func() error {
			poll(ctx, c, iv)

			return nil
		})
	}

	eg.Go(func() error {
		<-ctx.Done()

		return src.Close()
	})

	return eg.Wait()
}

func poll(ctx context.Context, c Checker, iv time.Duration) {
	tick := time.NewTicker(iv)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			c.Poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// trigger turns notifications into checks, dropping those about
// unrelated paths.
type trigger struct {
	ctx context.Context

	c Checker
}

var _ watch.Handler = trigger{}

func (t trigger) Created(path string)  { t.fire(path) }
func (t trigger) Modified(path string) { t.fire(path) }
func (t trigger) Moved(path string)    { t.fire(path) }
func (t trigger) Deleted(path string)  { t.fire(path) }

func (t trigger) fire(path string) {
	if !t.c.Relevant(path) {
		return
	}

	t.c.Check(t.ctx)
}

// guard skips checks that follow the previous one too closely.
type guard struct {
	interval time.Duration

	last time.Time

	now func() time.Time
}

// due reports whether a check may run now, and if so records it.
// A forced check always runs.
func (g *guard) due(force bool) bool {
	now := g.now()

	if !force && g.interval > 0 && !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false
	}

	g.last = now

	return true
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	path = filepath.Clean(path)

	if path == root {
		return true
	}

	prefix := root

	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(path, prefix)
}
