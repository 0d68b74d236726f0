// Package stage defines the ordered transform sequence applied to every item.
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/stagegrid/internal/item"
)

// Input is what a transform receives. For the first stage Value is the item's
// Source; for every later stage it is the previous stage's published output.
type Input struct {
	Item  item.Item
	Value any
}

// TransformFunc is the opaque unit of work a stage performs.
type TransformFunc func(ctx context.Context, in Input) (any, error)

// Stage is one named step of the chain. Stages are static for the lifetime of
// a run.
type Stage struct {
	Name      string
	Transform TransformFunc

	// Retries is the number of extra attempts after a failed one. Zero keeps
	// the default at-most-once invocation.
	Retries int
	// Timeout bounds a single attempt. Zero means no limit.
	Timeout time.Duration
}

// Names returns the stage names in order.
func Names(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

// Bytes coerces a transform input holding raw data into a byte slice.
func Bytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("expected bytes or string input, got %T", v)
	}
}
