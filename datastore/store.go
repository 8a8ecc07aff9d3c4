package datastore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// DataDirName is the directory under the root holding every subdirectory.
	DataDirName = "Data"
	snapshotExt = ".json"
)

// Recorder is notified of every snapshot written by a Store.
//
// Files are given relative to Store.DataDir, slash separated.
type Recorder interface {
	Record(files ...string) error
}

// Options configures a Store. The zero value is usable.
type Options struct {
	// Scene supplies the subdirectory when a caller passes "". When nil, an
	// empty subdirectory is an error.
	Scene SceneProvider
	// Logger receives diagnostics such as a load miss. Defaults to
	// slog.Default().
	Logger *slog.Logger
	// Recorder, when set, is called after each successful write.
	Recorder Recorder
	// FileMode defaults to 0o644.
	FileMode os.FileMode
	// DirMode defaults to 0o755.
	DirMode os.FileMode
}

// Store maps (type name, subdirectory) pairs to JSON snapshot files under
// <root>/Data.
//
// A Store holds no mutable state and may be shared between goroutines.
// Concurrent writes to the same snapshot are not serialized.
type Store struct {
	root     string
	dataDir  string
	scene    SceneProvider
	logger   *slog.Logger
	recorder Recorder
	fileMode os.FileMode
	dirMode  os.FileMode
}

// New creates a Store rooted at root and creates <root>/Data if needed.
func New(root string, opts *Options) (*Store, error) {
	if root == "" {
		return nil, errors.New("root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	if opts == nil {
		opts = &Options{}
	}
	s := &Store{
		root:     abs,
		dataDir:  filepath.Join(abs, DataDirName),
		scene:    opts.Scene,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		fileMode: opts.FileMode,
		dirMode:  opts.DirMode,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.fileMode == 0 {
		s.fileMode = 0o644
	}
	if s.dirMode == 0 {
		s.dirMode = 0o755
	}
	if err := os.MkdirAll(s.dataDir, s.dirMode); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return s, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// DataDir returns the directory holding all subdirectories, <root>/Data.
func (s *Store) DataDir() string {
	return s.dataDir
}

// resolve returns the validated subdirectory in slash form, substituting the
// active scene for "".
func (s *Store) resolve(subdir string) (string, error) {
	if subdir == "" {
		if s.scene == nil {
			return "", ErrNoScene
		}
		if subdir = s.scene.ActiveScene(); subdir == "" {
			return "", ErrNoScene
		}
	}
	if _, err := cleanSubdir(subdir); err != nil {
		return "", err
	}
	return subdir, nil
}

// Path returns the snapshot path for the type called name in subdir.
func (s *Store) Path(name, subdir string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	sub, err := s.resolve(subdir)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(sub), name+snapshotExt), nil
}

// write overwrites the snapshot in full. There is no temporary file.
func (s *Store) write(name, subdir string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	sub, err := s.resolve(subdir)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.dataDir, filepath.FromSlash(sub))
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	file := filepath.Join(dir, name+snapshotExt)
	if err := os.WriteFile(file, data, s.fileMode); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", file, err)
	}
	s.logger.Debug("Saved snapshot", "path", file, "bytes", len(data))
	if s.recorder != nil {
		if err := s.recorder.Record(path.Join(sub, name+snapshotExt)); err != nil {
			return fmt.Errorf("failed to record snapshot %s: %w", file, err)
		}
	}
	return nil
}

// read returns the snapshot content and its path. A missing file is reported
// as ErrNotFound, with the path still set.
func (s *Store) read(name, subdir string) ([]byte, string, error) {
	file, err := s.Path(name, subdir)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(file) //nolint:gosec // G304: path elements are validated
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, file, fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		return nil, file, fmt.Errorf("failed to read snapshot %s: %w", file, err)
	}
	return data, file, nil
}

func (s *Store) remove(name, subdir string) error {
	sub, err := s.resolve(subdir)
	if err != nil {
		return err
	}
	file, err := s.Path(name, sub)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", file, err)
	}
	s.logger.Debug("Deleted snapshot", "path", file)
	if s.recorder != nil {
		if err := s.recorder.Record(path.Join(sub, name+snapshotExt)); err != nil {
			return fmt.Errorf("failed to record deletion of %s: %w", file, err)
		}
	}
	return nil
}

// ReadRaw returns the snapshot bytes of the type called name.
//
// ok is false and err nil when the snapshot does not exist.
func (s *Store) ReadRaw(name, subdir string) (data []byte, ok bool, err error) {
	data, _, err = s.read(name, subdir)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// WriteRaw stores data as the snapshot of the type called name.
//
// data must be valid JSON; it is re-indented the same way Save formats
// values.
func (s *Store) WriteRaw(name, subdir string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: %s is not valid JSON", ErrCorrupt, name)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return fmt.Errorf("failed to indent %s: %w", name, err)
	}
	buf.WriteByte('\n')
	return s.write(name, subdir, buf.Bytes())
}

// DeleteRaw removes the snapshot of the type called name. A missing snapshot
// is not an error.
func (s *Store) DeleteRaw(name, subdir string) error {
	return s.remove(name, subdir)
}

// List returns the sorted type names stored in subdir.
func (s *Store) List(subdir string) ([]string, error) {
	sub, err := s.resolve(subdir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dataDir, filepath.FromSlash(sub)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", sub, err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := snapshotName(e); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Subdirs returns every subdirectory, slash separated, holding at least one
// snapshot.
func (s *Store) Subdirs() ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.dataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.dataDir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(entries, func(e fs.DirEntry) bool {
			_, ok := snapshotName(e)
			return ok
		}) {
			return nil
		}
		rel, err := filepath.Rel(s.dataDir, p)
		if err != nil {
			return err
		}
		if rel != "." {
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.dataDir, err)
	}
	slices.Sort(out)
	return out, nil
}

func snapshotName(e fs.DirEntry) (string, bool) {
	if !e.Type().IsRegular() {
		return "", false
	}
	name, ok := strings.CutSuffix(e.Name(), snapshotExt)
	if !ok || validateName(name) != nil {
		return "", false
	}
	return name, true
}
