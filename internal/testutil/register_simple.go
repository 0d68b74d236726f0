package testutil

import (
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a single transform with no args.
type SimpleModule struct {
	Name      string
	Transform stage.TransformFunc
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	fn := m.Transform
	r.RegisterTransform(m.Name, &registry.RegisteredTransform{
		Description: "test transform " + m.Name,
		New: func(registry.Args) (stage.TransformFunc, error) {
			return fn, nil
		},
	})
}
