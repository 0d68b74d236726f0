package report

import "fmt"

// StageFailure records a transform that returned an error or panicked. It is
// contained to its item and never aborts the run.
type StageFailure struct {
	ItemID string
	Stage  string
	Cause  error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("item %q failed at stage %q: %v", e.ItemID, e.Stage, e.Cause)
}

func (e *StageFailure) Unwrap() error { return e.Cause }

// PanicError wraps a value recovered from a panicking transform.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("transform panicked: %v", e.Value)
}
