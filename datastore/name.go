// Maps types and subdirectories to safe path elements.

package datastore

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
)

// Namer is implemented by types that choose their own snapshot file name.
//
// It is required for generic types, whose Go name embeds type arguments.
type Namer interface {
	DataName() string
}

// nameOf returns the snapshot name for t, dereferencing pointers.
func nameOf(t reflect.Type) (string, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return "", fmt.Errorf("%w: %s is an interface, use the concrete type", ErrInvalidName, t)
	}
	if n, ok := reflect.New(t).Interface().(Namer); ok {
		name := n.DataName()
		if err := validateName(name); err != nil {
			return "", err
		}
		return name, nil
	}
	name := t.Name()
	if name == "" {
		return "", fmt.Errorf("%w: %s is not a named type", ErrInvalidName, t)
	}
	if strings.ContainsRune(name, '[') {
		return "", fmt.Errorf("%w: generic type %s must implement Namer", ErrInvalidName, name)
	}
	return name, nil
}

func validateName(name string) error {
	if err := validateElement(name); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidName, name, err)
	}
	return nil
}

// cleanSubdir validates a slash separated relative subdirectory and returns
// it in OS form.
func cleanSubdir(subdir string) (string, error) {
	if subdir == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSubdir)
	}
	if strings.HasPrefix(subdir, "/") || filepath.IsAbs(subdir) || filepath.VolumeName(subdir) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidSubdir, subdir)
	}
	elems := strings.Split(subdir, "/")
	for _, e := range elems {
		if err := validateElement(e); err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidSubdir, subdir, err)
		}
	}
	return filepath.Join(elems...), nil
}

// validateElement checks one path element. Leading dots are refused, which
// keeps "." and ".." out as well as the history repository's ".git".
func validateElement(e string) error {
	if e == "" {
		return errEmptyElement
	}
	if e[0] == '.' {
		return errLeadingDot
	}
	if last := e[len(e)-1]; last == ' ' || last == '.' || e[0] == ' ' {
		return errEdgeSpace
	}
	for _, r := range e {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`/\<>:"|?*`, r) {
			return fmt.Errorf("forbidden character %q", r)
		}
	}
	return nil
}

var (
	errEmptyElement = errors.New("empty path element")
	errLeadingDot   = errors.New("path element starts with a dot")
	errEdgeSpace    = errors.New("path element starts or ends with a space or dot")
)
