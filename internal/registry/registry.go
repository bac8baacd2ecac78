// Package registry defines the shared namespace of dotted resource names
// and the traversal and checkpoint utilities the substitution engine builds
// on. The registry itself is an injected abstraction so tests and embedders
// can supply an isolated instance instead of mutating process-wide state.
package registry

import (
	"sync"
)

// Registry is the shared mapping from dotted names to live resource handles.
// It is mutated by the substitution engine and by providers, and read by
// arbitrary consumers at any time, so implementations must be safe for
// concurrent use. Keys must return a consistent view at the instant of the
// call.
type Registry interface {
	// Get retrieves the handle bound to name. Returns the handle and true
	// if the name is registered, or nil and false if not.
	Get(name string) (any, bool)

	// Set binds a handle to name, replacing any existing binding.
	Set(name string, value any)

	// Delete removes the binding for name. Removing an absent name is a
	// no-op.
	Delete(name string)

	// Keys returns every registered name. Order is unspecified.
	Keys() []string
}

// inMemory is a thread-safe map-backed Registry.
type inMemory struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewInMemory creates an empty in-memory Registry.
func NewInMemory() Registry {
	return &inMemory{
		entries: make(map[string]any),
	}
}

func (r *inMemory) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.entries[name]
	return value, ok
}

func (r *inMemory) Set(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = value
}

func (r *inMemory) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

func (r *inMemory) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for name := range r.entries {
		keys = append(keys, name)
	}
	return keys
}
