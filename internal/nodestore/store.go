// Package nodestore defines the interface for the mutable execution state
// of deferred units while a graph runs.
//
// # Why a Separate Store
//
// A dag.Graph is immutable once validated. Everything that changes while
// it runs (status, outputs, errors) lives here instead, so the executor can
// update state from many workers while readers resolve references of
// completed producers.
//
// # Lifecycle
//
// A store is:
//  1. Created once per graph execution
//  2. Mutated by executor workers as units run, fail or are skipped
//  3. Queried to resolve the inputs of units whose producers completed
//  4. Folded into dag.Results and discarded
//
// Units follow Pending -> Running -> Completed | Failed, or Pending ->
// Skipped when an upstream unit failed.
package nodestore

import (
	"context"

	"github.com/vk/lanepipe/internal/dag"
)

// Store manages the execution state of units.
//
// Implementations must be safe for concurrent use: each worker writes the
// state of its own unit while others read the outputs of completed units.
type Store interface {
	// SetStatus records a lifecycle transition.
	SetStatus(ctx context.Context, h dag.Handle, status dag.Status) error

	// GetStatus returns the current status, StatusPending if none was set.
	GetStatus(ctx context.Context, h dag.Handle) (dag.Status, error)

	// SetOutput records the outputs of a completed unit.
	SetOutput(ctx context.Context, h dag.Handle, out dag.Outputs) error

	// GetOutput returns the outputs of a unit, nil if none were recorded.
	GetOutput(ctx context.Context, h dag.Handle) (dag.Outputs, error)

	// SetError records why a unit failed or was skipped.
	SetError(ctx context.Context, h dag.Handle, unitErr error) error

	// GetError returns the recorded error, nil if none.
	GetError(ctx context.Context, h dag.Handle) (error, error)
}
