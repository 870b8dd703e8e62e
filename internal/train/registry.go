package train

import "sync"

// Registry holds all loaded trains in memory for fast lookup. The set
// of trains is read-mostly after load, so lookups take a read lock and
// never contend with the booking engine's seat locks.
type Registry struct {
	mu     sync.RWMutex
	trains map[string]*Train
	order  []string // insertion order, for deterministic iteration
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		trains: make(map[string]*Train),
	}
}

// Add registers a train, replacing any previous train with the same ID
func (r *Registry) Add(t *Train) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.trains[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.trains[t.ID] = t
}

// Get returns the train with the given ID
func (r *Registry) Get(id string) (*Train, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trains[id]
	return t, ok
}

// All returns the trains in insertion order
func (r *Registry) All() []*Train {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Train, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.trains[id])
	}
	return result
}

// Len returns the number of registered trains
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trains)
}
