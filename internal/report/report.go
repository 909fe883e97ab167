package report

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// TreeReporter receives the paths added to and removed from a directory
// tree by one check. At least one of the lists is non-empty.
type TreeReporter interface {
	ReportTree(added, removed []string)
}

// LineReporter receives the complete lines appended to a file since the
// previous check, in file order. lines is never empty.
type LineReporter interface {
	ReportLines(lines []string)
}

type TreeFunc func(added, removed []string)

func (fn TreeFunc) ReportTree(added, removed []string) {
	fn(added, removed)
}

type LinesFunc func(lines []string)

func (fn LinesFunc) ReportLines(lines []string) {
	fn(lines)
}

// Console prints changes in a human readable form.
type Console struct {
	// mu serializes writes to w.
	mu sync.Mutex

	w io.Writer
}

var (
	_ TreeReporter = (*Console)(nil)
	_ LineReporter = (*Console)(nil)
)

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) ReportTree(added, removed []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(added) > 0 {
		fmt.Fprintln(c.w, "Added:")

		for _, path := range added {
			fmt.Fprintln(c.w, "  +", path)
		}
	}

	if len(removed) > 0 {
		fmt.Fprintln(c.w, "Removed:")

		for _, path := range removed {
			fmt.Fprintln(c.w, "  -", path)
		}
	}
}

func (c *Console) ReportLines(lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.w, "New log lines received:")

	for _, line := range lines {
		fmt.Fprintln(c.w, "→", line)
	}
}

// Log emits one structured log record per reported path or line.
type Log struct {
	logger *slog.Logger
}

var (
	_ TreeReporter = Log{}
	_ LineReporter = Log{}
)

func NewLog(logger *slog.Logger) Log {
	return Log{logger: logger}
}

func (l Log) ReportTree(added, removed []string) {
	for _, path := range added {
		l.logger.Info("path added", slog.String("path", path))
	}

	for _, path := range removed {
		l.logger.Info("path removed", slog.String("path", path))
	}
}

func (l Log) ReportLines(lines []string) {
	for _, line := range lines {
		l.logger.Info("line appended", slog.String("line", line))
	}
}

// MultiTree passes every report to all of its members in order.
type MultiTree []TreeReporter

func (m MultiTree) ReportTree(added, removed []string) {
	for _, r := range m {
		r.ReportTree(added, removed)
	}
}

// MultiLines passes every report to all of its members in order.
type MultiLines []LineReporter

func (m MultiLines) ReportLines(lines []string) {
	for _, r := range m {
		r.ReportLines(lines)
	}
}
