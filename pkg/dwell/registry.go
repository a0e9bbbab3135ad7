package dwell

import "sync"

// Registry is the queryable set of candidate targets, in insertion order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	targets map[string]Target
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Put adds t or replaces the target with the same ID, keeping its position.
func (r *Registry) Put(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := t.ID()
	if _, exists := r.targets[id]; !exists {
		r.order = append(r.order, id)
	}
	r.targets[id] = t
}

// Remove deletes the target with the given ID.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[id]; !exists {
		return
	}
	delete(r.targets, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the target with the given ID.
func (r *Registry) Get(id string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	return t, ok
}

// Targets returns a snapshot of all targets in insertion order.
func (r *Registry) Targets() []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Target, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.targets[id])
	}
	return out
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Clear removes every target.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.targets = make(map[string]Target)
}
