package datastore

import "sync"

// SceneProvider reports the name of the scene currently active in the host.
//
// The store uses it as the subdirectory when a caller passes "".
type SceneProvider interface {
	ActiveScene() string
}

// StaticScene is a SceneProvider that always reports the same scene.
type StaticScene string

// ActiveScene implements SceneProvider.
func (s StaticScene) ActiveScene() string {
	return string(s)
}

// SceneTracker is a SceneProvider the host updates on every scene change.
//
// It is safe for concurrent use.
type SceneTracker struct {
	mu   sync.RWMutex
	name string
}

// SetActive records name as the active scene.
func (t *SceneTracker) SetActive(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.name = name
}

// ActiveScene implements SceneProvider.
func (t *SceneTracker) ActiveScene() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}
