package print

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// New returns a transform that logs its input and passes it through.
func New(args registry.Args) (stage.TransformFunc, error) {
	message, err := args.String("message", "Value")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, in stage.Input) (any, error) {
		ctxlog.FromContext(ctx).Info("🖨️ "+message, "item", in.Item.ID, "value", in.Value)
		return in.Value, nil
	}, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("print", &registry.RegisteredTransform{
		Description: "Logs the value and passes it through unchanged.",
		New:         New,
	})
}
