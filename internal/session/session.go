// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote execution.
package session

import (
	"context"

	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/registry"
)

// SessionFactory creates an execution Session. Different implementations
// back it with the in-process worker pool or a remote job platform.
type SessionFactory interface {
	NewSession(ctx context.Context, reg *registry.Registry, n notify.Notifier) (Session, error)
}

// Session owns one executor for the lifetime of an invocation. Every stage
// graph of the invocation is run on it.
type Session interface {
	GetExecutor() (dag.Executor, error)
	// Close releases platform connections and stops embedded workers.
	Close(ctx context.Context) error
}
