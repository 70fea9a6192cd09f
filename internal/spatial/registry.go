package spatial

import (
	"slices"
	"sync"
)

// Registry is an id-keyed store for one entity kind. Re-registering an id
// overwrites the previous object. List order is insertion order and carries
// no meaning.
type Registry[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]*T),
	}
}

// Register stores obj under id and reports whether id was new.
func (r *Registry[T]) Register(id string, obj *T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.items[id]
	r.items[id] = obj
	if !exists {
		r.order = append(r.order, id)
	}
	return !exists
}

// Unregister removes id and reports whether it existed.
func (r *Registry[T]) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[id]; !exists {
		return false
	}
	delete(r.items, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true
}

// Get returns the object stored under id.
func (r *Registry[T]) Get(id string) (*T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.items[id]
	return obj, ok
}

// Has reports whether id is registered.
func (r *Registry[T]) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}

// List returns all registered ids.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Len returns the number of registered objects.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear removes everything.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*T)
	r.order = nil
}
