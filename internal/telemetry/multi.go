package telemetry

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// Multi fans every callback out to each observer in order.
type Multi []engine.Observer

// NewMulti drops nil observers.
func NewMulti(observers ...engine.Observer) Multi {
	out := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m Multi) RunStarted(ctx context.Context, info engine.RunInfo) {
	for _, o := range m {
		o.RunStarted(ctx, info)
	}
}

func (m Multi) NodeDispatched(ctx context.Context, ev engine.NodeEvent) {
	for _, o := range m {
		o.NodeDispatched(ctx, ev)
	}
}

func (m Multi) NodeFinished(ctx context.Context, ev engine.NodeEvent) {
	for _, o := range m {
		o.NodeFinished(ctx, ev)
	}
}

func (m Multi) NodeSkipped(ctx context.Context, ev engine.NodeEvent) {
	for _, o := range m {
		o.NodeSkipped(ctx, ev)
	}
}

func (m Multi) RunFinished(ctx context.Context, r *report.RunReport) {
	for _, o := range m {
		o.RunFinished(ctx, r)
	}
}
