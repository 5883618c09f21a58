package llm

import (
	"context"
	"fmt"

	"github.com/edvora/minerva/pkg/trie"
)

// Mux routes model names to registered Generators. Names are
// "provider/model" paths; patterns may use the trie wildcards, so
// "openai/#" registers a fallback for every OpenAI model while
// "openai/gpt-4o-mini" pins one.
type Mux struct {
	trie *trie.Trie[Generator]
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{trie: trie.New[Generator]()}
}

// Handle registers a generator under a model name pattern.
func (m *Mux) Handle(pattern string, g Generator) error {
	replaced, err := m.trie.Put(pattern, g)
	if err != nil {
		return fmt.Errorf("llm: handle %s: %w", pattern, err)
	}
	if replaced {
		return fmt.Errorf("llm: generator already registered for %s", pattern)
	}
	return nil
}

// Models returns the registered patterns, for diagnostics.
func (m *Mux) Models() []string {
	var out []string
	m.trie.Walk(func(pattern string, _ Generator) {
		out = append(out, pattern)
	})
	return out
}

func (m *Mux) get(model string) (Generator, error) {
	g, ok := m.trie.Get(model)
	if !ok || g == nil {
		return nil, fmt.Errorf("llm: no generator for model %s", model)
	}
	return g, nil
}

// GenerateStream dispatches to the generator registered for model.
func (m *Mux) GenerateStream(ctx context.Context, model string, req Request) (Stream, error) {
	g, err := m.get(model)
	if err != nil {
		return nil, err
	}
	return g.GenerateStream(ctx, model, req)
}

// Invoke dispatches to the generator registered for model.
func (m *Mux) Invoke(ctx context.Context, model string, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	g, err := m.get(model)
	if err != nil {
		return Usage{}, nil, err
	}
	return g.Invoke(ctx, model, req, tool)
}

// DefaultMux is the mux used by the package-level functions. Providers are
// registered on it at startup.
var DefaultMux = NewMux()

// Handle registers a generator on DefaultMux.
func Handle(pattern string, g Generator) error {
	return DefaultMux.Handle(pattern, g)
}

// GenerateStream dispatches model on DefaultMux.
func GenerateStream(ctx context.Context, model string, req Request) (Stream, error) {
	return DefaultMux.GenerateStream(ctx, model, req)
}

// Invoke dispatches model on DefaultMux.
func Invoke(ctx context.Context, model string, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	return DefaultMux.Invoke(ctx, model, req, tool)
}
