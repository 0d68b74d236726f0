package hcl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// translate converts the decoded HCL schema into the format-agnostic model.
func (l *Loader) translate(ctx context.Context, root *fileRoot, evalCtx *hcl.EvalContext) (*config.Pipeline, error) {
	p := &config.Pipeline{
		Name:    deref(root.Name),
		Workers: deref(root.Workers),
		Serial:  deref(root.Serial),
	}

	if root.Items != nil {
		items, err := translateItems(ctx, root.Items, evalCtx)
		if err != nil {
			return nil, err
		}
		p.Items = items
	}

	for _, s := range root.Stages {
		spec, err := translateStage(ctx, s, evalCtx)
		if err != nil {
			return nil, err
		}
		p.Stages = append(p.Stages, spec)
	}

	switch len(root.Sinks) {
	case 0:
	case 1:
		s := root.Sinks[0]
		p.Sink = &config.SinkSpec{
			Kind:   s.Kind,
			Dir:    deref(s.Dir),
			Path:   deref(s.Path),
			Bucket: deref(s.Bucket),
			Prefix: deref(s.Prefix),
		}
	default:
		return nil, errors.New("at most one sink block is allowed")
	}
	return p, nil
}

func translateItems(ctx context.Context, b *itemsBlock, evalCtx *hcl.EvalContext) (config.ItemSource, error) {
	src := config.ItemSource{
		Dir:       deref(b.Dir),
		Patterns:  b.Patterns,
		Recursive: deref(b.Recursive),
	}
	if !isExprDefined(ctx, b.Values, "values") {
		return src, nil
	}

	val, diags := b.Values.Value(evalCtx)
	if diags.HasErrors() {
		return src, fmt.Errorf("items: values: %w", diags)
	}
	raw, err := ctyValueToInterface(val)
	if err != nil {
		return src, fmt.Errorf("items: values: %w", err)
	}
	values, ok := raw.([]any)
	if !ok {
		return src, fmt.Errorf("items: values must be a list, got %s", val.Type().FriendlyName())
	}
	src.Values = values
	return src, nil
}

func translateStage(ctx context.Context, s *stageBlock, evalCtx *hcl.EvalContext) (config.StageSpec, error) {
	spec := config.StageSpec{
		Name:      s.Name,
		Transform: s.Transform,
		Retries:   deref(s.Retries),
	}

	if s.Timeout != nil {
		d, err := time.ParseDuration(*s.Timeout)
		if err != nil {
			return spec, fmt.Errorf("stage %q: invalid timeout: %w", s.Name, err)
		}
		spec.Timeout = d
	}

	if isExprDefined(ctx, s.Args, "args") {
		val, diags := s.Args.Value(evalCtx)
		if diags.HasErrors() {
			return spec, fmt.Errorf("stage %q: args: %w", s.Name, diags)
		}
		raw, err := ctyValueToInterface(val)
		if err != nil {
			return spec, fmt.Errorf("stage %q: args: %w", s.Name, err)
		}
		args, ok := raw.(map[string]any)
		if raw != nil && !ok {
			return spec, fmt.Errorf("stage %q: args must be an object, got %s", s.Name, val.Type().FriendlyName())
		}
		spec.Args = args
	}
	return spec, nil
}

// isExprDefined checks if an HCL expression was actually present in the
// source. gohcl populates omitted optional expression fields with a
// zero-width placeholder, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
