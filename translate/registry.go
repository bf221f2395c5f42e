package translate

import (
	"sort"
	"sync"

	"github.com/veldt-io/exportd/errors"
)

// Registry manages translators by format id.
// Thread-safe for concurrent registration and lookup.
type Registry struct {
	mu          sync.RWMutex
	translators map[string]Translator
}

// NewRegistry creates an empty translator registry.
func NewRegistry() *Registry {
	return &Registry{
		translators: make(map[string]Translator),
	}
}

// DefaultRegistry returns a registry with the built-in translators installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewJSONTranslator())
	r.Register(NewCSVTranslator())
	return r
}

// Register adds a translator under its format id.
// Panics if a translator is already registered with that id.
func (r *Registry) Register(t Translator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.translators[t.ID()]; exists {
		panic("translator already registered for id: " + t.ID())
	}
	r.translators[t.ID()] = t
}

// Get retrieves the translator for a format id.
func (r *Registry) Get(id string) (Translator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.translators[id]
	if !ok {
		return nil, errors.NewNotFoundError("translator %s", id)
	}
	return t, nil
}

// List returns the registered format ids, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.translators))
	for id := range r.translators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
