// Typed entry points. Go methods cannot have type parameters, so these are
// functions taking the Store.

package datastore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Datable is implemented by every type a Store may persist.
//
// Validate is called before a value is written and after it is decoded.
type Datable interface {
	Validate() error
}

// Save writes v as the snapshot of its type in subdir, replacing any previous
// snapshot. An empty subdir selects the active scene.
func Save[T Datable](s *Store, v T, subdir string) error {
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	if isNil(v) {
		return fmt.Errorf("%w: nil %s", ErrInvalid, name)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return s.write(name, subdir, append(data, '\n'))
}

// Load reads the snapshot of T in subdir.
//
// A missing snapshot returns the zero value and an error matching
// ErrNotFound.
func Load[T Datable](s *Store, subdir string) (T, error) {
	var zero T
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	data, _, err := s.read(name, subdir)
	if err != nil {
		return zero, err
	}
	return decode[T](name, data)
}

// LoadOrDefault reads the snapshot of T in subdir.
//
// A missing snapshot is logged as a warning and returns the zero value with
// a nil error. Any other failure is returned.
func LoadOrDefault[T Datable](s *Store, subdir string) (T, error) {
	var zero T
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	data, file, err := s.read(name, subdir)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("Json file not found", "path", file)
		return zero, nil
	}
	if err != nil {
		return zero, err
	}
	return decode[T](name, data)
}

// TryLoad reads the snapshot of T in subdir.
//
// ok is false, without logging, when the snapshot does not exist.
func TryLoad[T Datable](s *Store, subdir string) (v T, ok bool, err error) {
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return v, false, err
	}
	data, _, err := s.read(name, subdir)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if v, err = decode[T](name, data); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Exists reports whether a snapshot of T exists in subdir.
func Exists[T Datable](s *Store, subdir string) (bool, error) {
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return false, err
	}
	_, _, err = s.read(name, subdir)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the snapshot of T in subdir. A missing snapshot is not an
// error.
func Delete[T Datable](s *Store, subdir string) error {
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	return s.remove(name, subdir)
}

// PathOf returns the file that holds the snapshot of T in subdir.
func PathOf[T Datable](s *Store, subdir string) (string, error) {
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return "", err
	}
	return s.Path(name, subdir)
}

// NameOf returns the snapshot name of T.
func NameOf[T Datable]() (string, error) {
	return nameOf(reflect.TypeFor[T]())
}

// Decode parses a snapshot held in memory, such as an older revision.
func Decode[T Datable](data []byte) (T, error) {
	var zero T
	name, err := nameOf(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return decode[T](name, data)
}

func decode[T Datable](name string, data []byte) (T, error) {
	var v, zero T
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return zero, fmt.Errorf("%w: %s is null", ErrCorrupt, name)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	if err := v.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	return v, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
