package flow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrAgentNotFound is returned by Registry.Get for an unknown name.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrAgentExists is returned by Registry.Register on a duplicate name.
	ErrAgentExists = errors.New("agent already registered")
	// ErrEmptyAgentName is returned when registering with an empty name.
	ErrEmptyAgentName = errors.New("agent name is empty")
)

// Registry manages named agent definitions for config-driven flows.
// Thread-safe for concurrent access.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds a named agent definition.
func (r *Registry) Register(name string, a Agent) error {
	if name == "" {
		return ErrEmptyAgentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, name)
	}
	if a.Name == "" {
		a.Name = name
	}
	r.agents[name] = a
	return nil
}

// Replace updates the definition for an existing named agent.
func (r *Registry) Replace(name string, a Agent) error {
	if name == "" {
		return ErrEmptyAgentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	if a.Name == "" {
		a.Name = name
	}
	r.agents[name] = a
	return nil
}

// Get retrieves a named agent definition.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[name]
	if !exists {
		return Agent{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// List returns all registered agent names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
