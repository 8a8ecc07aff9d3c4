package datastore

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned by Load when no snapshot exists at the resolved
	// path. It matches fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("snapshot not found: %w", fs.ErrNotExist)
	// ErrCorrupt is returned when a snapshot is not valid JSON for its type.
	ErrCorrupt = errors.New("corrupt snapshot")
	// ErrInvalid is returned when a value fails its own validation.
	ErrInvalid = errors.New("invalid value")
	// ErrInvalidSubdir is returned for a subdirectory that is not a safe
	// relative path.
	ErrInvalidSubdir = errors.New("invalid subdirectory")
	// ErrInvalidName is returned for a type name that cannot be used as a
	// file name.
	ErrInvalidName = errors.New("invalid type name")
	// ErrNoScene is returned when no subdirectory is given and no scene is
	// active.
	ErrNoScene = errors.New("no subdirectory given and no active scene")
)
