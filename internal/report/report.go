package report

import (
	"encoding/json"
	"time"
)

// State is the final state of an item's chain.
type State string

const (
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
)

// ItemOutcome is the result of one item's chain.
type ItemOutcome struct {
	ItemID string `json:"item"`
	State  State  `json:"state"`
	// FailedStage is the stage that failed, or the first stage that was never
	// run for skipped items. Empty for completed items.
	FailedStage string `json:"stage,omitempty"`
	Cause       error  `json:"-"`
	// Output is the final stage's output for completed items.
	Output any `json:"output,omitempty"`
}

// MarshalJSON renders Cause as its message.
func (o ItemOutcome) MarshalJSON() ([]byte, error) {
	type plain ItemOutcome
	var cause string
	if o.Cause != nil {
		cause = o.Cause.Error()
	}
	return json.Marshal(struct {
		plain
		Cause string `json:"cause,omitempty"`
	}{plain: plain(o), Cause: cause})
}

// RunReport is the complete outcome of a run.
type RunReport struct {
	RunID    string        `json:"run_id"`
	Pipeline string        `json:"pipeline,omitempty"`
	Stages   []string      `json:"stages"`
	Items    []ItemOutcome `json:"items"`

	// Cancelled is set when the run context was cancelled before every node
	// was dispatched.
	Cancelled bool `json:"cancelled,omitempty"`
	// Aborted is set when an invariant violation stopped the run.
	Aborted bool `json:"aborted,omitempty"`
	// FinalizeErr is the error returned by the finalize action, if any.
	FinalizeErr error `json:"-"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	Profile *Profile `json:"profile,omitempty"`
}

// Counts tallies item outcomes per state.
type Counts struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Total is the number of items counted.
func (c Counts) Total() int { return c.Completed + c.Failed + c.Skipped }

// Counts tallies the outcomes of r.
func (r *RunReport) Counts() Counts {
	var c Counts
	for _, o := range r.Items {
		switch o.State {
		case StateCompleted:
			c.Completed++
		case StateFailed:
			c.Failed++
		case StateSkipped:
			c.Skipped++
		}
	}
	return c
}

// Outcome returns the outcome of the given item.
func (r *RunReport) Outcome(itemID string) (ItemOutcome, bool) {
	for _, o := range r.Items {
		if o.ItemID == itemID {
			return o, true
		}
	}
	return ItemOutcome{}, false
}

// Outputs maps each completed item to its final output.
func (r *RunReport) Outputs() map[string]any {
	out := make(map[string]any)
	for _, o := range r.Items {
		if o.State == StateCompleted {
			out[o.ItemID] = o.Output
		}
	}
	return out
}

// Succeeded reports whether every item completed and the run was neither
// cancelled nor aborted.
func (r *RunReport) Succeeded() bool {
	if r.Cancelled || r.Aborted || r.FinalizeErr != nil {
		return false
	}
	c := r.Counts()
	return c.Completed == len(r.Items)
}

// MarshalJSON adds the counts and finalize error to the encoded report.
func (r *RunReport) MarshalJSON() ([]byte, error) {
	type plain RunReport
	var finalizeErr string
	if r.FinalizeErr != nil {
		finalizeErr = r.FinalizeErr.Error()
	}
	return json.Marshal(struct {
		*plain
		Counts      Counts `json:"counts"`
		FinalizeErr string `json:"finalize_error,omitempty"`
	}{plain: (*plain)(r), Counts: r.Counts(), FinalizeErr: finalizeErr})
}
