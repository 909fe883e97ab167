package tail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/lineread"
)

type Options struct {
	Decoding Decoding
}

// Tracker reads lines appended to a file since the last read.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	path string

	opts Options

	// offset is the position just past the last newline handed out.
	offset int64
}

// NewTracker starts tracking path from its current end, so that content
// written before NewTracker is never returned. If path does not exist yet,
// tracking starts at the beginning of the file once it is created.
func NewTracker(path string, opts Options) *Tracker {
	t := &Tracker{
		path: path,
		opts: opts,
	}

	if info, err := os.Stat(path); err == nil {
		t.offset = info.Size()
	}

	return t
}

func (t *Tracker) Path() string {
	return t.path
}

func (t *Tracker) Offset() int64 {
	return t.offset
}

// Read returns the complete lines appended since the previous call,
// in file order, or nil if there are none.
//
// Bytes after the last newline are left unread until their line is
// terminated. Within terminated lines, "\r\n", "\n" and a lone "\r" all
// end a line. If the file has shrunk below the offset, it is assumed to have
// been truncated or replaced and is read again from the start.
//
// A missing file is not an error: Read returns nil and keeps the offset.
func (t *Tracker) Read() ([]string, error) {
	f, err := os.Open(t.path)

	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil // removed or not created yet
	}

	if err != nil {
		return nil, err
	}

	defer f.Close()

	info, err := f.Stat()

	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", t.path, err)
	}

	size := info.Size()

	if size < t.offset {
		t.offset = 0 // truncated
	}

	if size == t.offset {
		return nil, nil
	}

	buf := make([]byte, size-t.offset)

	n, err := f.ReadAt(buf, t.offset)

	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot read %s: %w", t.path, err)
	}

	var lines []string

	consumed, _ := lineread.Complete(buf[:n], func(line []byte) error {
		// a lone carriage return inside a terminated line ends a line too.
		for _, part := range bytes.Split(line, []byte{'\r'}) {
			lines = append(lines, t.opts.Decoding.decode(part))
		}

		return nil
	})

	t.offset += int64(consumed)

	return lines, nil
}
