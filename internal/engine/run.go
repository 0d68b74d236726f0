package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/stage"
	"golang.org/x/sync/errgroup"
)

// runState is owned by the coordinator goroutine.
type runState struct {
	depCount []int
	status   []nodestore.Status
	causes   []error
	ready    []int
	inflight int

	terminalReady bool
	cancelled     bool
	fatal         error
}

// Run executes the graph and returns the run report. The report is returned
// even when err is non-nil. err wraps ErrCancelled when the run context was
// cancelled, ErrAborted after an invariant violation, and carries the
// finalize error otherwise. Item failures never produce an error.
func (e *Engine) Run(ctx context.Context) (*report.RunReport, error) {
	if !e.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRan
	}

	g := e.graph
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "run_id", runID[:12])

	rep := &report.RunReport{
		RunID:    runID,
		Pipeline: e.opts.Pipeline,
		Stages:   stage.Names(g.Stages),
		Started:  e.opts.Now(),
	}
	obs := e.opts.Observer
	obs.RunStarted(ctx, RunInfo{
		RunID:    runID,
		Pipeline: e.opts.Pipeline,
		Stages:   rep.Stages,
		Items:    len(g.Items),
		Nodes:    g.Len(),
		Workers:  e.opts.Workers,
		Started:  rep.Started,
	})
	logger.Info("🚀 Starting pipeline run.",
		"pipeline", e.opts.Pipeline,
		"items", len(g.Items),
		"stages", len(g.Stages),
		"nodes", g.Len(),
		"workers", e.opts.Workers,
	)

	st := &runState{
		depCount: make([]int, g.Len()),
		status:   make([]nodestore.Status, g.Len()),
		causes:   make([]error, g.Len()),
	}
	for i, n := range g.Nodes {
		st.depCount[i] = len(n.Deps)
		if len(n.Deps) == 0 {
			st.ready = append(st.ready, i)
		}
	}

	// Buffered to the node count so a worker never blocks on send.
	results := make(chan nodeResult, g.Len())
	var pool errgroup.Group
	pool.SetLimit(e.opts.Workers)

	for {
		e.dispatch(ctx, st, &pool, results)
		if st.inflight == 0 {
			break
		}
		res := <-results
		st.inflight--
		e.handleResult(ctx, st, res)
	}
	_ = pool.Wait()

	// Anything still pending was never dispatched.
	skipCause := st.fatal
	if skipCause == nil && st.cancelled {
		skipCause = context.Cause(ctx)
	}
	terminal := g.Terminal()
	for i, n := range g.Nodes {
		if n.IsTerminal() || st.status[i].Terminal() {
			continue
		}
		e.markSkipped(ctx, st, i, skipCause)
	}

	rep.Items = e.outcomes(ctx, st)
	rep.Cancelled = st.cancelled
	rep.Aborted = st.fatal != nil

	var runErr error
	switch {
	case st.fatal != nil:
		e.markSkipped(ctx, st, terminal.Index, st.fatal)
		runErr = fmt.Errorf("%w: %w", ErrAborted, st.fatal)
	case st.cancelled:
		e.markSkipped(ctx, st, terminal.Index, skipCause)
		runErr = fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	case !st.terminalReady:
		rep.Aborted = true
		err := fmt.Errorf("terminal node has %d unresolved dependencies", st.depCount[terminal.Index])
		e.markSkipped(ctx, st, terminal.Index, err)
		runErr = fmt.Errorf("%w: %w", ErrAborted, err)
	default:
		rep.FinalizeErr = e.finalize(ctx, st, rep)
		if rep.FinalizeErr != nil {
			runErr = fmt.Errorf("finalize: %w", rep.FinalizeErr)
		}
	}

	rep.Finished = e.opts.Now()
	obs.RunFinished(ctx, rep)

	c := rep.Counts()
	logger.Info("🏁 Run finished.",
		"completed", c.Completed,
		"failed", c.Failed,
		"skipped", c.Skipped,
		"cancelled", rep.Cancelled,
		"aborted", rep.Aborted,
		"duration", rep.Finished.Sub(rep.Started),
	)
	return rep, runErr
}

// dispatch hands ready nodes to the pool until the queue is empty, the pool
// is saturated, or the run must stop. The terminal node is never handed out;
// it only flags that finalize may run once the pool drains.
func (e *Engine) dispatch(ctx context.Context, st *runState, pool *errgroup.Group, results chan<- nodeResult) {
	for len(st.ready) > 0 && st.inflight < e.opts.Workers {
		if st.fatal != nil || st.cancelled {
			return
		}

		// A ready terminal node means every chain is settled, so a late
		// cancellation has nothing left to cut short.
		idx := st.ready[0]
		n := e.graph.Nodes[idx]
		if n.IsTerminal() {
			st.ready = st.ready[1:]
			st.terminalReady = true
			continue
		}
		if ctx.Err() != nil {
			st.cancelled = true
			ctxlog.FromContext(ctx).Warn("Context canceled, no further nodes will be dispatched.", "pending", len(st.ready))
			return
		}
		st.ready = st.ready[1:]

		dispatched := e.opts.Now()
		st.status[idx] = nodestore.StatusRunning
		e.setStatus(ctx, n, nodestore.StatusRunning)
		e.opts.Observer.NodeDispatched(ctx, NodeEvent{Key: n.Key, Stage: n.Stage.Name, Dispatched: dispatched})

		st.inflight++
		pool.Go(func() error {
			res := e.execute(ctx, n)
			res.dispatched = dispatched
			results <- res
			return nil
		})
	}
}

// handleResult applies a worker's outcome and releases or skips dependents.
func (e *Engine) handleResult(ctx context.Context, st *runState, res nodeResult) {
	logger := ctxlog.FromContext(ctx)
	n := e.graph.Nodes[res.index]
	ev := NodeEvent{
		Key:        n.Key,
		Stage:      n.Stage.Name,
		Dispatched: res.dispatched,
		Started:    res.started,
		Finished:   res.finished,
		Attempts:   res.attempts,
		Err:        res.err,
		Output:     res.output,
	}

	switch {
	case res.fatal != nil:
		logger.Error("Invariant violation, aborting run.", "nodeID", n.Key.String(), "error", res.fatal)
		if st.fatal == nil {
			st.fatal = res.fatal
		}
		ev.Err = res.fatal
		e.resolve(ctx, st, res.index, nodestore.StatusFailed, res.fatal)
	case res.err != nil:
		logger.Warn("Stage failed, skipping the rest of the item.", "nodeID", n.Key.String(), "error", res.err)
		e.resolve(ctx, st, res.index, nodestore.StatusFailed, res.err)
	default:
		logger.Debug("Node execution succeeded.", "nodeID", n.Key.String(), "attempts", res.attempts)
		e.resolve(ctx, st, res.index, nodestore.StatusCompleted, nil)
	}
	e.opts.Observer.NodeFinished(ctx, ev)
}

// resolve records a final status for idx. A completed node unlocks its
// dependents; any other outcome skips the rest of the item's chain and
// releases the item's contribution to the terminal node.
func (e *Engine) resolve(ctx context.Context, st *runState, idx int, status nodestore.Status, cause error) {
	n := e.graph.Nodes[idx]
	st.status[idx] = status
	st.causes[idx] = cause
	e.setStatus(ctx, n, status)
	if cause != nil {
		if err := e.store.SetError(ctx, n.Key, cause); err != nil {
			ctxlog.FromContext(ctx).Error("Failed to record node error.", "nodeID", n.Key.String(), "error", err)
		}
	}

	for _, d := range n.Dependents {
		dep := e.graph.Nodes[d]
		if status == nodestore.StatusCompleted || dep.IsTerminal() {
			st.depCount[d]--
			if st.depCount[d] == 0 {
				st.ready = append(st.ready, d)
			}
			continue
		}
		e.markSkipped(ctx, st, d, fmt.Errorf("%w: %s", ErrUpstreamFailed, n.Key))
	}
}

// markSkipped resolves a node that will never run and cascades downstream.
func (e *Engine) markSkipped(ctx context.Context, st *runState, idx int, cause error) {
	if st.status[idx].Terminal() {
		return
	}
	n := e.graph.Nodes[idx]
	ev := NodeEvent{Key: n.Key, Err: cause}
	if n.Stage != nil {
		ev.Stage = n.Stage.Name
	}
	ctxlog.FromContext(ctx).Debug("Skipping node.", "nodeID", n.Key.String(), "cause", cause)
	e.resolve(ctx, st, idx, nodestore.StatusSkipped, cause)
	e.opts.Observer.NodeSkipped(ctx, ev)
}

func (e *Engine) setStatus(ctx context.Context, n *graph.Node, status nodestore.Status) {
	if err := e.store.SetStatus(ctx, n.Key, status); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to record node status.", "nodeID", n.Key.String(), "error", err)
	}
}

// finalize runs the terminal node inline; nothing else is in flight.
func (e *Engine) finalize(ctx context.Context, st *runState, rep *report.RunReport) error {
	terminal := e.graph.Terminal()
	ev := NodeEvent{Key: terminal.Key, Stage: terminal.Key.String(), Dispatched: e.opts.Now()}
	st.status[terminal.Index] = nodestore.StatusRunning
	e.setStatus(ctx, terminal, nodestore.StatusRunning)
	e.opts.Observer.NodeDispatched(ctx, ev)

	ev.Started = e.opts.Now()
	ev.Attempts = 1
	err := callFinalize(ctx, e.opts.Finalize, rep)
	ev.Finished = e.opts.Now()
	ev.Err = err

	status := nodestore.StatusCompleted
	if err != nil {
		status = nodestore.StatusFailed
		ctxlog.FromContext(ctx).Error("Finalize failed.", "error", err)
	}
	e.resolve(ctx, st, terminal.Index, status, err)
	e.opts.Observer.NodeFinished(ctx, ev)
	return err
}

func callFinalize(ctx context.Context, fn FinalizeFunc, rep *report.RunReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &report.PanicError{Value: r}
		}
	}()
	return fn(ctx, rep)
}

// outcomes folds node statuses into one outcome per item.
func (e *Engine) outcomes(ctx context.Context, st *runState) []report.ItemOutcome {
	g := e.graph
	out := make([]report.ItemOutcome, 0, len(g.Items))
	for i, it := range g.Items {
		o := report.ItemOutcome{ItemID: it.ID, State: report.StateCompleted}
		chain := g.Chain(i)
		for _, n := range chain {
			switch st.status[n.Index] {
			case nodestore.StatusFailed:
				o.State = report.StateFailed
				o.FailedStage = n.Stage.Name
				o.Cause = st.causes[n.Index]
			case nodestore.StatusSkipped:
				if o.State == report.StateCompleted {
					o.State = report.StateSkipped
					o.FailedStage = n.Stage.Name
					o.Cause = st.causes[n.Index]
				}
			}
			if o.State == report.StateFailed {
				break
			}
		}
		if o.State == report.StateCompleted {
			last := chain[len(chain)-1]
			output, ok, err := e.store.Output(ctx, last.Key)
			if err != nil || !ok {
				ctxlog.FromContext(ctx).Error("Completed chain has no published output.", "nodeID", last.Key.String(), "error", err)
			}
			o.Output = output
		}
		out = append(out, o)
	}
	return out
}

// IsCancelled reports whether err came from a cancelled run.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }
