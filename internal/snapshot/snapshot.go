package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Snapshot is the set of paths, relative to the root and separated by
// forward slashes, of every file system entry below a directory.
//
// A Snapshot is never modified after [Take] returns it.
type Snapshot map[string]struct{}

// Options controls which entries are recorded.
type Options struct {
	// Ignore lists glob patterns (see [filepath.Match]) matched against
	// the base name of each entry. An ignored directory is skipped
	// together with everything below it.
	Ignore []string
}

func (o Options) ignored(name string) bool {
	for _, pattern := range o.Ignore {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}

	return false
}

// Take enumerates every entry below root.
//
// Symbolic links are recorded but never followed. Take fails if root
// cannot be read, including when it disappears during enumeration.
// A subdirectory that cannot be read, or that disappears before it is
// read, is recorded but its contents are not.
func Take(root string, opts Options) (Snapshot, error) {
	snap, err := take(os.DirFS(root), opts)

	if err != nil {
		return nil, fmt.Errorf("cannot enumerate %s: %w", root, err)
	}

	return snap, nil
}

func take(fsys fs.FS, opts Options) (Snapshot, error) {
	snap := make(Snapshot)

	err := fs.WalkDir(fsys, ".", func(path string, ent fs.DirEntry, err error) error {
		if path == "." {
			return err
		}

		if err != nil {
			if ent != nil && ent.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if opts.ignored(ent.Name()) {
			if ent.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		snap[path] = struct{}{}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return snap, nil
}

func (s Snapshot) Len() int {
	return len(s)
}

func (s Snapshot) Has(path string) bool {
	_, ok := s[path]

	return ok
}

// Sorted returns all paths in lexical order.
func (s Snapshot) Sorted() []string {
	keys := maps.Keys(s)

	slices.Sort(keys)

	return keys
}

// Result holds the outcome of [Diff]. Both lists are sorted.
type Result struct {
	Added   []string
	Removed []string
}

func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// Diff computes which paths were added in cur and which were removed
// since prev. A renamed entry shows up as one removal and one addition.
func Diff(prev, cur Snapshot) Result {
	var res Result

	for path := range cur {
		if !prev.Has(path) {
			res.Added = append(res.Added, path)
		}
	}

	for path := range prev {
		if !cur.Has(path) {
			res.Removed = append(res.Removed, path)
		}
	}

	slices.Sort(res.Added)
	slices.Sort(res.Removed)

	return res
}
