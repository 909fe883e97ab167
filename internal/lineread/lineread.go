package lineread

import (
	"bytes"
)

// Complete calls fn for each newline-terminated line in buf and returns
// the number of bytes consumed, i.e. the length of buf up to and including
// the last newline.
//
// Any trailing bytes after the last newline are not passed to fn.
// The line passed to fn excludes the newline and any preceding carriage return.
//
// Complete stops at the first error returned by fn; n then covers
// every line for which fn succeeded.
func Complete(buf []byte, fn func(line []byte) error) (n int, err error) {
	for {
		idx := bytes.IndexByte(buf[n:], '\n')

		if idx < 0 {
			return n, nil // remainder is incomplete
		}

		line := bytes.TrimSuffix(buf[n:n+idx], []byte{'\r'})

		if err := fn(line); err != nil {
			return n, err
		}

		n += idx + 1
	}
}
