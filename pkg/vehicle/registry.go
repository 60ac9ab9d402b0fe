package vehicle

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages available fleet backends
type Registry struct {
	mu       sync.RWMutex
	backends map[string]func() Fleet
}

// NewRegistry creates a new backend registry
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]func() Fleet),
	}
}

// Register adds a backend to the registry
func (r *Registry) Register(name string, factory func() Fleet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("vehicle backend %s already registered", name)
	}

	r.backends[name] = factory
	return nil
}

// Get returns a new instance of the requested backend
func (r *Registry) Get(name string) (Fleet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.backends[name]
	if !exists {
		return nil, fmt.Errorf("vehicle backend %s not found", name)
	}

	return factory(), nil
}

// List returns all registered backend names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global backend registry
var DefaultRegistry = NewRegistry()
