// Package datastore persists typed snapshots as pretty-printed JSON files.
//
// # Overview
//
// A [Store] is rooted at a writable data directory. Each value is stored in
// its own file keyed by its type name and a subdirectory, usually the name of
// the active scene:
//
//	<root>/Data/<subdir>/<TypeName>.json
//
// Saving a value of the same type to the same subdirectory overwrites the
// previous snapshot in full. There is no locking and no atomic rename; the
// last writer wins.
//
// # Loading
//
// Three loaders cover the different ways a caller may want to handle a
// missing snapshot:
//
//   - [Load] returns an error matching [ErrNotFound].
//   - [LoadOrDefault] logs a warning and returns the zero value.
//   - [TryLoad] returns a presence flag.
//
// Malformed content and I/O faults are always returned as errors.
//
// # Subdirectories
//
// An empty subdirectory selects the active scene reported by the store's
// [SceneProvider]. Subdirectories may be nested with "/" but every element is
// validated so that a snapshot can never be written outside the data
// directory.
package datastore
