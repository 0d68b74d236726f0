package stage

import (
	"errors"
	"fmt"
)

// ErrNoStages is returned when a pipeline declares no stages at all.
var ErrNoStages = errors.New("at least one stage is required")

// ConfigurationError reports an invalid stage list or item set. It is raised
// before any node executes.
type ConfigurationError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Stage != "" {
		msg += fmt.Sprintf(" in stage %q", e.Stage)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Validate checks that stages is non-empty and that every stage has a unique,
// non-empty name and a transform.
func Validate(stages []Stage) error {
	if len(stages) == 0 {
		return &ConfigurationError{Err: ErrNoStages}
	}

	seen := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("stage at position %d has an empty name", i)}
		}
		if prev, dup := seen[s.Name]; dup {
			return &ConfigurationError{
				Stage:  s.Name,
				Reason: fmt.Sprintf("duplicate stage name (positions %d and %d)", prev, i),
			}
		}
		seen[s.Name] = i
		if s.Transform == nil {
			return &ConfigurationError{Stage: s.Name, Reason: "transform is nil"}
		}
		if s.Retries < 0 {
			return &ConfigurationError{Stage: s.Name, Reason: "retries must not be negative"}
		}
		if s.Timeout < 0 {
			return &ConfigurationError{Stage: s.Name, Reason: "timeout must not be negative"}
		}
	}
	return nil
}
