// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Each node's state is independent and the key space is known up front, so
// the store keeps three sync.Maps instead of one mutex-guarded map. Publish
// relies on sync.Map.LoadOrStore for its insert-if-absent guarantee.
//
// A store created with keys only accepts those keys; any other key yields
// nodestore.ErrUnknownNode. The key set is fixed at construction and only
// read afterwards.
package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // nodeid.Key -> nodestore.Status
	outputs sync.Map // nodeid.Key -> output (any, possibly nil)
	errors  sync.Map // nodeid.Key -> error

	known map[nodeid.Key]struct{} // nil accepts any key
}

// New creates a new, empty in-memory node state store. When keys are given,
// the store is scoped to exactly those nodes.
func New(keys ...nodeid.Key) *Store {
	s := &Store{}
	if len(keys) > 0 {
		s.known = make(map[nodeid.Key]struct{}, len(keys))
		for _, k := range keys {
			s.known[k] = struct{}{}
		}
	}
	return s
}

func (s *Store) check(key nodeid.Key) error {
	if s.known == nil {
		return nil
	}
	if _, ok := s.known[key]; !ok {
		return fmt.Errorf("%w: %s", nodestore.ErrUnknownNode, key)
	}
	return nil
}

var _ nodestore.Store = (*Store)(nil)

// SetStatus updates the execution status of a specific node.
func (s *Store) SetStatus(_ context.Context, key nodeid.Key, status nodestore.Status) error {
	if err := s.check(key); err != nil {
		return err
	}
	s.states.Store(key, status)
	return nil
}

// Status retrieves the execution status of a node, defaulting to pending.
func (s *Store) Status(_ context.Context, key nodeid.Key) (nodestore.Status, error) {
	if err := s.check(key); err != nil {
		return nodestore.StatusPending, err
	}
	status, ok := s.states.Load(key)
	if !ok {
		return nodestore.StatusPending, nil
	}
	return status.(nodestore.Status), nil
}

// Publish stores output for key unless a value is already present.
func (s *Store) Publish(_ context.Context, key nodeid.Key, output any) error {
	if err := s.check(key); err != nil {
		return err
	}
	if _, loaded := s.outputs.LoadOrStore(key, output); loaded {
		return fmt.Errorf("%w: %s", nodestore.ErrAlreadyPublished, key)
	}
	return nil
}

// Output retrieves the published output of a node.
func (s *Store) Output(_ context.Context, key nodeid.Key) (any, bool, error) {
	if err := s.check(key); err != nil {
		return nil, false, err
	}
	output, ok := s.outputs.Load(key)
	return output, ok, nil
}

// SetError records the failure error of a node.
func (s *Store) SetError(_ context.Context, key nodeid.Key, nodeErr error) error {
	if err := s.check(key); err != nil {
		return err
	}
	s.errors.Store(key, nodeErr)
	return nil
}

// Error retrieves the recorded error of a failed node.
func (s *Store) Error(_ context.Context, key nodeid.Key) (error, error) {
	if err := s.check(key); err != nil {
		return nil, err
	}
	err, ok := s.errors.Load(key)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}
