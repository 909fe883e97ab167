package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/log"
	"github.com/fsnotify/fsnotify"
)

var ErrNotDir = errors.New("not a directory")

// Handler receives coarse-grained change notifications.
//
// Notifications may be missed or coalesced; the path is the one
// reported by the operating system and may belong to a sibling of the
// watched path.
type Handler interface {
	Created(path string)
	Modified(path string)
	Moved(path string)
	Deleted(path string)
}

// Source delivers notifications to a Handler until ctx is done.
type Source interface {
	Listen(ctx context.Context, h Handler) error
	Close() error
}

// Watcher is a [Source] backed by fsnotify.
type Watcher struct {
	watch *fsnotify.Watcher

	// recursive is set by WatchTree; new directories are then
	// added as they appear.
	recursive bool

	seen map[string]struct{}
}

var _ Source = (*Watcher)(nil)

func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()

	if err != nil {
		return nil, err
	}

	return &Watcher{
		watch: w,

		seen: make(map[string]struct{}),
	}, nil
}

// WatchTree subscribes to root and every directory below it.
// WatchTree fails with [ErrNotDir] if root is not a directory.
func (w *Watcher) WatchTree(root string) error {
	info, err := os.Stat(root)

	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", root, ErrNotDir)
	}

	w.recursive = true

	return w.add(root)
}

// WatchFile subscribes to the directory containing path, since some
// platforms cannot watch a file directly and the file may not exist yet.
func (w *Watcher) WatchFile(path string) error {
	dir := filepath.Clean(filepath.Dir(path))

	if err := w.watch.Add(dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	w.seen[dir] = struct{}{}

	return nil
}

func (w *Watcher) Listen(ctx context.Context, h Handler) error {
	for {
		select {
		case evt, ok := <-w.watch.Events:
			if !ok {
				return nil // closed
			}

			w.handle(h, evt)
		case err, ok := <-w.watch.Errors:
			if !ok {
				return nil
			}

			log.Debug(ctx, "notification error", slog.Any("error", err))
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) Close() error {
	if err := w.watch.Close(); err != nil {
		return err
	}

	return nil
}

func (w *Watcher) handle(h Handler, evt fsnotify.Event) {
	if w.recursive {
		switch {
		case evt.Has(fsnotify.Create):
			_ = w.add(evt.Name) // watch new directories on a best effort basis; ignore errors
		case evt.Has(fsnotify.Remove), evt.Has(fsnotify.Rename):
			w.forget(evt.Name)
		}
	}

	dispatch(h, evt)
}

func dispatch(h Handler, evt fsnotify.Event) {
	switch {
	case evt.Has(fsnotify.Create):
		h.Created(evt.Name)
	case evt.Has(fsnotify.Write), evt.Has(fsnotify.Chmod):
		h.Modified(evt.Name)
	case evt.Has(fsnotify.Rename):
		h.Moved(evt.Name)
	case evt.Has(fsnotify.Remove):
		h.Deleted(evt.Name)
	}
}

// add watches the entire file system tree rooted at dir,
// including (recursively) all subtrees of dir.
//
// add does nothing if dir is not actually a directory.
func (w *Watcher) add(dir string) error {
	return filepath.WalkDir(dir, func(path string, ent fs.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}

		if !ent.IsDir() {
			return nil
		}

		path = filepath.Clean(path)

		if _, ok := w.seen[path]; ok {
			return nil
		}

		if err := w.watch.Add(path); err != nil {
			return filepath.SkipDir
		}

		w.seen[path] = struct{}{}

		return nil
	})
}

// forget drops dir and everything below it from the set of watched
// directories, so that a directory recreated under the same name is
// watched again. fsnotify already removed the underlying watches.
func (w *Watcher) forget(dir string) {
	dir = filepath.Clean(dir)

	prefix := dir + string(filepath.Separator)

	for path := range w.seen {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(w.seen, path)
		}
	}
}
