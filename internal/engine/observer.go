package engine

import (
	"context"
	"time"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// RunInfo describes a run that is about to start.
type RunInfo struct {
	RunID    string
	Pipeline string
	Stages   []string
	Items    int
	Nodes    int
	Workers  int
	Started  time.Time
}

// NodeEvent describes a node transition. Fields that do not apply to the
// transition are zero.
type NodeEvent struct {
	Key        nodeid.Key
	Stage      string
	Dispatched time.Time
	Started    time.Time
	Finished   time.Time
	Attempts   int
	Err        error
	Output     any // memoized result of a completed node; read-only
}

// Observer receives run and node lifecycle callbacks. All methods are called
// from the coordinator goroutine, one at a time, and must not block for long.
// Observers cannot influence scheduling.
type Observer interface {
	RunStarted(ctx context.Context, info RunInfo)
	NodeDispatched(ctx context.Context, ev NodeEvent)
	NodeFinished(ctx context.Context, ev NodeEvent)
	NodeSkipped(ctx context.Context, ev NodeEvent)
	RunFinished(ctx context.Context, r *report.RunReport)
}

// NopObserver implements Observer with no-ops. Embed it to implement only the
// callbacks you need.
type NopObserver struct{}

func (NopObserver) RunStarted(context.Context, RunInfo) {}
func (NopObserver) NodeDispatched(context.Context, NodeEvent) {}
func (NopObserver) NodeFinished(context.Context, NodeEvent) {}
func (NopObserver) NodeSkipped(context.Context, NodeEvent) {}
func (NopObserver) RunFinished(context.Context, *report.RunReport) {}
