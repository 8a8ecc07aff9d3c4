// Package watch reports snapshot files changed on disk, so a running game can
// reload data edited by hand or by another tool.
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

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change.
type Op int

const (
	// Written means the snapshot was created or overwritten.
	Written Op = iota + 1
	// Removed means the snapshot was deleted or renamed away.
	Removed
)

func (o Op) String() string {
	switch o {
	case Written:
		return "written"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Event is a change to one snapshot.
type Event struct {
	Subdir string // Slash separated.
	Name   string // Type name, without extension.
	Op     Op
}

// Watcher watches a data directory and all its subdirectories.
type Watcher struct {
	dir    string
	w      *fsnotify.Watcher
	logger *slog.Logger
}

// New starts watching dir recursively. Hidden directories are skipped.
func New(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	wt := &Watcher{dir: filepath.Clean(dir), w: w, logger: logger}
	if err := wt.addTree(wt.dir); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return wt, nil
}

// Close stops watching.
func (wt *Watcher) Close() error {
	return wt.w.Close()
}

func (wt *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != wt.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := wt.w.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// Run delivers events to fn until ctx is done or the watcher is closed.
//
// fn is called from the goroutine running Run.
func (wt *Watcher) Run(ctx context.Context, fn func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-wt.w.Events:
			if !ok {
				return nil
			}
			wt.handle(ctx, ev, fn)
		case err, ok := <-wt.w.Errors:
			if !ok {
				return nil
			}
			wt.logger.WarnContext(ctx, "Error watching data directory", "err", err)
		}
	}
}

func (wt *Watcher) handle(ctx context.Context, ev fsnotify.Event, fn func(Event)) {
	if ev.Has(fsnotify.Create) {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if !strings.HasPrefix(filepath.Base(ev.Name), ".") {
				if err := wt.addTree(ev.Name); err != nil {
					wt.logger.WarnContext(ctx, "Failed to watch new directory", "path", ev.Name, "err", err)
				}
				// Files written before the watch was added would be missed.
				wt.replay(ev.Name, fn)
			}
			return
		}
	}
	var op Op
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		op = Removed
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		op = Written
	default:
		return
	}
	subdir, name, ok := ParseEvent(wt.dir, ev.Name)
	if !ok {
		return
	}
	fn(Event{Subdir: subdir, Name: name, Op: op})
}

func (wt *Watcher) replay(root string, fn func(Event)) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if subdir, name, ok := ParseEvent(wt.dir, p); ok {
			fn(Event{Subdir: subdir, Name: name, Op: Written})
		}
		return nil
	})
}

// ParseEvent maps a snapshot path under dataDir back to its subdirectory and
// type name. ok is false for paths that are not snapshots.
func ParseEvent(dataDir, path string) (subdir, name string, ok bool) {
	rel, err := filepath.Rel(filepath.Clean(dataDir), path)
	if err != nil {
		return "", "", false
	}
	rel = filepath.ToSlash(rel)
	dir, file := "", rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		dir, file = rel[:i], rel[i+1:]
	}
	if dir == "" || dir == ".." || strings.HasPrefix(dir, "../") {
		return "", "", false
	}
	for elem := range strings.SplitSeq(dir, "/") {
		if strings.HasPrefix(elem, ".") {
			return "", "", false
		}
	}
	name, ok = strings.CutSuffix(file, ".json")
	if !ok || name == "" || strings.HasPrefix(name, ".") {
		return "", "", false
	}
	return dir, name, true
}
