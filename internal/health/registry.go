// Package health tracks the external collaborators the service depends
// on and answers readiness checks against all of them.
package health

import (
	"context"
	"sync"
)

// Pinger reports whether a single collaborator is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Registry manages named collaborator pingers.
type Registry struct {
	mu      sync.RWMutex
	pingers map[string]Pinger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pingers: make(map[string]Pinger),
	}
}

// Register adds a pinger to the registry.
func (r *Registry) Register(name string, p Pinger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pingers[name] = p
}

// List returns all registered collaborator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.pingers))
	for name := range r.pingers {
		names = append(names, name)
	}
	return names
}

// CheckAll pings every registered collaborator and returns per-name results.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error, len(r.pingers))
	for name, p := range r.pingers {
		results[name] = p.Ping(ctx)
	}
	return results
}

// Healthy returns true if every registered collaborator is reachable.
func (r *Registry) Healthy(ctx context.Context) bool {
	for _, err := range r.CheckAll(ctx) {
		if err != nil {
			return false
		}
	}
	return true
}
