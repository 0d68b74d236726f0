package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Module is the interface that all transform modules implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// TransformFactory builds a transform from the stage's `args`.
type TransformFactory func(args Args) (stage.TransformFunc, error)

// RegisteredTransform is a named transform available to pipelines.
type RegisteredTransform struct {
	Description string
	New         TransformFactory
}

// Registry holds the transforms known to an application instance.
type Registry struct {
	transforms map[string]*RegisteredTransform
}

// New creates a Registry and registers the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{transforms: make(map[string]*RegisteredTransform)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterTransform registers a transform factory under name.
func (r *Registry) RegisterTransform(name string, t *RegisteredTransform) {
	if _, exists := r.transforms[name]; exists {
		panic(fmt.Sprintf("transform with name '%s' already registered", name))
	}
	if t == nil || t.New == nil {
		panic(fmt.Sprintf("transform '%s' has no factory", name))
	}
	slog.Debug("Registering transform.", "name", name)
	r.transforms[name] = t
}

// Lookup returns the transform registered under name.
func (r *Registry) Lookup(name string) (*RegisteredTransform, bool) {
	t, ok := r.transforms[name]
	return t, ok
}

// Names returns the registered transform names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.transforms))
}
