package engine

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/inmemorystore"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// FinalizeFunc runs once every chain is resolved, with the item outcomes
// already filled in. It is not called on cancelled or aborted runs.
type FinalizeFunc func(ctx context.Context, r *report.RunReport) error

// Options tunes an Engine.
type Options struct {
	// Pipeline is a display name recorded in the report.
	Pipeline string
	// Workers bounds concurrent transforms. Defaults to the number of CPUs.
	Workers int
	// Serial runs one node at a time in FIFO dispatch order.
	Serial bool
	// Observer receives lifecycle callbacks. Optional.
	Observer Observer
	// Finalize replaces DefaultFinalize.
	Finalize FinalizeFunc
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine executes one graph once.
type Engine struct {
	graph *graph.Graph
	store nodestore.Store
	opts  Options
	ran   atomic.Bool
}

// New creates an engine for g. A nil store gets a fresh in-memory store
// scoped to g's nodes.
func New(g *graph.Graph, store nodestore.Store, opts Options) *Engine {
	if store == nil {
		store = inmemorystore.New(g.Keys()...)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Serial {
		opts.Workers = 1
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Finalize == nil {
		opts.Finalize = DefaultFinalize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{graph: g, store: store, opts: opts}
}

// Store exposes the node store populated by Run.
func (e *Engine) Store() nodestore.Store { return e.store }

// Workers is the effective worker count.
func (e *Engine) Workers() int { return e.opts.Workers }

// DefaultFinalize logs a one-line summary of the run.
func DefaultFinalize(ctx context.Context, r *report.RunReport) error {
	c := r.Counts()
	ctxlog.FromContext(ctx).Info("✅ done.",
		"completed", c.Completed,
		"failed", c.Failed,
		"skipped", c.Skipped,
	)
	return nil
}
