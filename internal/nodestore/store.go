// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of nodes during a run: status, published outputs
// and failures.
//
// # Why Node Store Exists
//
// The store isolates mutable run state from the immutable graph built by
// internal/graph. The graph owns node identities and edges; the engine is the
// only writer of the store.
//
// # Lifecycle
//
//  1. Created once per run (ephemeral, never persisted across runs).
//  2. Mutated as nodes move through their states.
//  3. Queried by the engine to resolve a node's single upstream output.
//  4. Discarded when the run ends. Only what a sink writes survives.
//
// # State Transitions
//
//	Pending → Running → Completed (with output) OR Failed (with error)
//	Pending → Skipped (upstream failure, cancellation or abort)
//
// # Memoization
//
// Publish is insert-if-absent. A node's output is written at most once and
// every later read returns the same value object. A second Publish for the
// same key is an invariant violation reported as ErrAlreadyPublished.
package nodestore

import (
	"context"
	"errors"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
)

var (
	// ErrAlreadyPublished is returned by Publish when the key already holds a
	// result.
	ErrAlreadyPublished = errors.New("node result already published")
	// ErrUnknownNode is returned when a key does not belong to the run.
	ErrUnknownNode = errors.New("unknown node")
)

// Store manages the mutable execution state of nodes.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use: workers publish results
// while the coordinator reads and updates statuses.
//
// See internal/inmemorystore for the reference implementation.
type Store interface {
	// SetStatus records a node's lifecycle transition.
	SetStatus(ctx context.Context, key nodeid.Key, status Status) error

	// Status returns the current status, or StatusPending if none was set.
	Status(ctx context.Context, key nodeid.Key) (Status, error)

	// Publish stores the node's output if and only if no output is stored
	// yet. It returns ErrAlreadyPublished otherwise and leaves the existing
	// value untouched.
	Publish(ctx context.Context, key nodeid.Key, output any) error

	// Output returns the published output and whether one exists. A nil
	// output that was published is reported as present.
	Output(ctx context.Context, key nodeid.Key) (any, bool, error)

	// SetError records the failure cause of a node.
	SetError(ctx context.Context, key nodeid.Key, nodeErr error) error

	// Error returns the recorded failure of a node, or nil.
	Error(ctx context.Context, key nodeid.Key) (error, error)
}
