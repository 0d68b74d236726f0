package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Recorder wraps transforms and records, per item and stage, how often they
// ran and when. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	calls   map[string]int
	records map[string]*ExecutionRecord
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		calls:   make(map[string]int),
		records: make(map[string]*ExecutionRecord),
	}
}

// Wrap returns fn instrumented under the stage name.
func (r *Recorder) Wrap(stageName string, fn stage.TransformFunc) stage.TransformFunc {
	return func(ctx context.Context, in stage.Input) (any, error) {
		key := stageName + "/" + in.Item.ID
		start := time.Now()
		r.mu.Lock()
		r.calls[key]++
		r.mu.Unlock()

		out, err := fn(ctx, in)

		end := time.Now()
		r.mu.Lock()
		r.records[key] = &ExecutionRecord{Start: start, End: end}
		r.mu.Unlock()
		return out, err
	}
}

// Calls returns how many times stageName ran for itemID.
func (r *Recorder) Calls(stageName, itemID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[stageName+"/"+itemID]
}

// TotalCalls returns the number of transform invocations recorded.
func (r *Recorder) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, c := range r.calls {
		total += c
	}
	return total
}

// Record returns the timing of the last call of stageName for itemID.
func (r *Recorder) Record(stageName, itemID string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[stageName+"/"+itemID]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Sleeper returns a pass-through transform that sleeps for d.
func Sleeper(d time.Duration) stage.TransformFunc {
	return func(_ context.Context, in stage.Input) (any, error) {
		time.Sleep(d)
		return in.Value, nil
	}
}
