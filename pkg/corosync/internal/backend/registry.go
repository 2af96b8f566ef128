package backend

import "sync"

// Registry maps raw native handles to the Go values that own them. Native
// callbacks only carry the raw handle, so trampolines use the registry to
// find the handler to call.
//
// The lock is held for a single map operation. Callers must never invoke
// native code or a user callback while holding a value obtained from the
// registry under its lock; Lookup returns a copy and releases it first.
type Registry[V any] struct {
	mu      sync.Mutex
	entries map[uint64]V
}

// NewRegistry returns an empty registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{entries: make(map[uint64]V)}
}

// Insert stores v under raw, replacing any stale entry.
func (r *Registry[V]) Insert(raw uint64, v V) {
	r.mu.Lock()
	r.entries[raw] = v
	r.mu.Unlock()
}

// Lookup returns the value registered under raw.
func (r *Registry[V]) Lookup(raw uint64) (V, bool) {
	r.mu.Lock()
	v, ok := r.entries[raw]
	r.mu.Unlock()
	return v, ok
}

// Remove deletes raw and reports whether it was present.
func (r *Registry[V]) Remove(raw uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[raw]
	delete(r.entries, raw)
	return ok
}

// Len returns the number of registered handles.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
