// Package autosave throttles saves of values that change every frame.
package autosave

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/maruel/scenedata/datastore"
)

// Saver writes at most one snapshot per interval and keeps the latest
// rejected value pending until the next allowed save or Flush.
//
// It is safe for concurrent use.
type Saver[T datastore.Datable] struct {
	store   *datastore.Store
	subdir  string
	limiter *rate.Limiter

	mu      sync.Mutex
	pending T
	dirty   bool
}

// New returns a Saver writing T to subdir at most once per every. An empty
// subdir follows the store's active scene at write time.
func New[T datastore.Datable](store *datastore.Store, subdir string, every time.Duration) *Saver[T] {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &Saver[T]{
		store:   store,
		subdir:  subdir,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Offer saves v now if the interval allows it, otherwise remembers it as
// pending. saved reports whether v was written.
func (s *Saver[T]) Offer(v T) (saved bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.limiter.Allow() {
		s.pending = v
		s.dirty = true
		return false, nil
	}
	if err := datastore.Save(s.store, v, s.subdir); err != nil {
		return false, err
	}
	var zero T
	s.pending = zero
	s.dirty = false
	return true, nil
}

// Pending reports whether a value is waiting to be written.
func (s *Saver[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush writes the pending value, if any, regardless of the interval.
func (s *Saver[T]) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := datastore.Save(s.store, s.pending, s.subdir); err != nil {
		return err
	}
	var zero T
	s.pending = zero
	s.dirty = false
	return nil
}
