package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Backoff bounds for stages that opt into retries.
const (
	retryInitialInterval = 50 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// nodeResult is what a worker reports back to the coordinator.
type nodeResult struct {
	index      int
	dispatched time.Time
	started    time.Time
	finished   time.Time
	attempts   int
	output     any
	// err is a contained *report.StageFailure.
	err error
	// fatal is an invariant violation that aborts the run.
	fatal error
}

// execute resolves n's input, runs its transform and publishes the output.
// It runs on a pool goroutine and touches no coordinator state.
func (e *Engine) execute(ctx context.Context, n *graph.Node) nodeResult {
	res := nodeResult{index: n.Index}
	tctx, logger := ctxlog.With(context.WithoutCancel(ctx), "item", n.Key.Item, "stage", n.Stage.Name)
	logger.Debug("Worker picked up node for execution.")

	in := stage.Input{Item: n.Item, Value: n.Item.Source}
	if prev, ok := n.Key.Prev(); ok {
		v, found, err := e.store.Output(tctx, prev)
		if err != nil {
			res.fatal = fmt.Errorf("reading result of %s: %w", prev, err)
			return res
		}
		if !found {
			res.fatal = &MissingDependencyError{Node: n.Key, Dependency: prev}
			return res
		}
		in.Value = v
	}

	res.started = e.opts.Now()
	out, attempts, err := invoke(tctx, n.Stage, in)
	res.finished = e.opts.Now()
	res.attempts = attempts
	if err != nil {
		res.err = &report.StageFailure{ItemID: n.Key.Item, Stage: n.Stage.Name, Cause: err}
		return res
	}

	if err := e.store.Publish(tctx, n.Key, out); err != nil {
		res.fatal = err
		return res
	}
	res.output = out
	return res
}

// invoke runs the transform once, or up to Retries+1 times with exponential
// backoff when the stage opts in. Panics are never retried.
func invoke(ctx context.Context, s *stage.Stage, in stage.Input) (any, int, error) {
	if s.Retries == 0 {
		out, err := attempt(ctx, s, in)
		return out, 1, err
	}

	logger := ctxlog.FromContext(ctx)
	attempts := 0
	op := func() (any, error) {
		attempts++
		out, err := attempt(ctx, s, in)
		if err == nil {
			return out, nil
		}
		var panicErr *report.PanicError
		if errors.As(err, &panicErr) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.Retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Transform attempt failed, retrying.", "attempt", attempts, "next_in", next, "error", err)
		}),
	)
	return out, attempts, err
}

// attempt makes one call to the transform, bounded by the stage timeout.
func attempt(ctx context.Context, s *stage.Stage, in stage.Input) (out any, err error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Transform panicked.", "panic", r, "stack", string(debug.Stack()))
			out, err = nil, &report.PanicError{Value: r}
		}
	}()
	return s.Transform(ctx, in)
}
