// Package localsession provides the session.SessionFactory for in-process
// execution on the local worker pool.
package localsession

import (
	"context"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/inmemorystore"
	"github.com/vk/lanepipe/internal/localexecutor"
	"github.com/vk/lanepipe/internal/nodestore"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	Workers int
}

// NewSession wires a local executor with a fresh in-memory state store per
// graph.
func (f *SessionFactory) NewSession(ctx context.Context, reg *registry.Registry, n notify.Notifier) (session.Session, error) {
	ctxlog.FromContext(ctx).Debug("Creating local session.", "workers", f.Workers)

	exec := localexecutor.New(reg, f.Workers,
		localexecutor.WithNotifier(n),
		localexecutor.WithStore(func() nodestore.Store { return inmemorystore.New() }),
	)
	return &Session{executor: exec}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	executor *localexecutor.Executor
}

// GetExecutor returns the executor created by the factory.
func (s *Session) GetExecutor() (dag.Executor, error) {
	return s.executor, nil
}

// Close has nothing to release.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.")
	return nil
}
