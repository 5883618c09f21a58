package agents

import (
	"fmt"
	"sort"

	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/trie"
)

// Registry is the closed set of specialists for a deployment, keyed by
// agent name. Registration of a duplicate name fails: the set is fixed at
// startup, never mutated per turn.
type Registry struct {
	agents *trie.Trie[Agent]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: trie.New[Agent]()}
}

// Register adds a specialist. A second specialist under the same name is
// an error.
func (r *Registry) Register(a Agent) error {
	replaced, err := r.agents.Put(a.Name(), a)
	if err != nil {
		return fmt.Errorf("agents: register %s: %w", a.Name(), err)
	}
	if replaced {
		return fmt.Errorf("agents: agent already registered for %s", a.Name())
	}
	return nil
}

// Get returns the specialist registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	return r.agents.Get(name)
}

// ByRole returns the first specialist holding role.
func (r *Registry) ByRole(role Role) (Agent, bool) {
	var found Agent
	r.agents.Walk(func(_ string, a Agent) {
		if found == nil && a.Role() == role {
			found = a
		}
	})
	return found, found != nil
}

// Names returns all registered agent names, sorted.
func (r *Registry) Names() []string {
	var names []string
	r.agents.Walk(func(pattern string, _ Agent) {
		names = append(names, pattern)
	})
	sort.Strings(names)
	return names
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	return r.agents.Len()
}

// FromPersonas builds a registry of specialists, one per persona, all
// sharing the given generator.
func FromPersonas(personas []Persona, gen llm.Generator) (*Registry, error) {
	r := NewRegistry()
	for _, p := range personas {
		if err := r.Register(NewSpecialist(p, gen)); err != nil {
			return nil, err
		}
	}
	return r, nil
}
