package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/nodestore"
)

// Store keeps unit state in three independent sync.Maps. The key space is
// fixed when the graph is built and each unit's entries are written by a
// single worker, which is the access pattern sync.Map is tuned for.
type Store struct {
	states  sync.Map // Key: dag.Handle, Value: dag.Status
	outputs sync.Map // Key: dag.Handle, Value: dag.Outputs
	errors  sync.Map // Key: dag.Handle, Value: error
}

// New creates a new, empty in-memory unit state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the execution status of a unit.
func (s *Store) SetStatus(ctx context.Context, h dag.Handle, status dag.Status) error {
	s.states.Store(h, status)
	return nil
}

// GetStatus retrieves the execution status of a unit.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, h dag.Handle) (dag.Status, error) {
	status, ok := s.states.Load(h)
	if !ok {
		return dag.StatusPending, nil
	}
	return status.(dag.Status), nil
}

// SetOutput records the outputs of a completed unit.
func (s *Store) SetOutput(ctx context.Context, h dag.Handle, out dag.Outputs) error {
	s.outputs.Store(h, out)
	return nil
}

// GetOutput retrieves the recorded outputs of a unit.
func (s *Store) GetOutput(ctx context.Context, h dag.Handle) (dag.Outputs, error) {
	out, ok := s.outputs.Load(h)
	if !ok {
		return nil, nil
	}
	return out.(dag.Outputs), nil
}

// SetError records the failure error of a unit.
func (s *Store) SetError(ctx context.Context, h dag.Handle, unitErr error) error {
	s.errors.Store(h, unitErr)
	return nil
}

// GetError retrieves the recorded error of a unit.
func (s *Store) GetError(ctx context.Context, h dag.Handle) (error, error) {
	err, ok := s.errors.Load(h)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}
