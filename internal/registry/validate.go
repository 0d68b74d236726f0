package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Stages resolves stage specs into executable stages, in order. Every spec is
// checked so the error lists all problems at once; each problem is a
// *stage.ConfigurationError.
func (r *Registry) Stages(ctx context.Context, specs []config.StageSpec) ([]stage.Stage, error) {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	stages := make([]stage.Stage, 0, len(specs))

	for _, spec := range specs {
		t, ok := r.Lookup(spec.Transform)
		if !ok {
			errs = append(errs, &stage.ConfigurationError{
				Stage:  spec.Name,
				Reason: fmt.Sprintf("unknown transform %q", spec.Transform),
			})
			continue
		}
		fn, err := t.New(Args(spec.Args))
		if err != nil {
			errs = append(errs, &stage.ConfigurationError{Stage: spec.Name, Reason: "invalid args", Err: err})
			continue
		}
		logger.Debug("Resolved stage.", "stage", spec.Name, "transform", spec.Transform)
		stages = append(stages, stage.Stage{
			Name:      spec.Name,
			Transform: fn,
			Retries:   spec.Retries,
			Timeout:   spec.Timeout,
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := stage.Validate(stages); err != nil {
		return nil, err
	}
	return stages, nil
}
