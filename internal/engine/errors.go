package engine

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
)

var (
	// ErrCancelled is returned by Run when the run context was cancelled
	// before every node was dispatched.
	ErrCancelled = errors.New("run cancelled")
	// ErrAborted is returned by Run after an invariant violation.
	ErrAborted = errors.New("run aborted")
	// ErrUpstreamFailed is the skip cause of nodes downstream of a failure.
	ErrUpstreamFailed = errors.New("upstream stage failed")
	// ErrAlreadyRan is returned when Run is called more than once.
	ErrAlreadyRan = errors.New("engine has already run")
)

// MissingDependencyError reports a node whose upstream result is absent from
// the store at execution time. It indicates a scheduling bug and is fatal.
type MissingDependencyError struct {
	Node       nodeid.Key
	Dependency nodeid.Key
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("node %s: result of dependency %s is missing", e.Node, e.Dependency)
}
