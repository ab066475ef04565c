package temporalexec

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/worker"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/session"
)

// SessionFactory implements session.SessionFactory on a Temporal cluster.
type SessionFactory struct {
	Config Config
	// EmbeddedWorker runs a worker for the task queue inside the process.
	EmbeddedWorker bool
}

// NewSession dials the cluster and starts the embedded worker if enabled.
func (f *SessionFactory) NewSession(ctx context.Context, reg *registry.Registry, n notify.Notifier) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)

	backend, err := Dial(f.Config, reg, n)
	if err != nil {
		return nil, err
	}
	s := &Session{backend: backend}
	if f.EmbeddedWorker {
		w := backend.NewWorker(logger)
		if err := w.Start(); err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to start Temporal worker: %w", err)
		}
		s.worker = w
	}
	logger.Info("Temporal session opened.", "host_port", f.Config.HostPort, "task_queue", f.Config.TaskQueue, "embedded_worker", f.EmbeddedWorker)
	return s, nil
}

// Session implements session.Session for a Temporal backend.
type Session struct {
	backend *Backend
	worker  worker.Worker
}

// GetExecutor returns the backend.
func (s *Session) GetExecutor() (dag.Executor, error) {
	return s.backend, nil
}

// Close stops the embedded worker and closes the client.
func (s *Session) Close(ctx context.Context) error {
	if s.worker != nil {
		s.worker.Stop()
	}
	s.backend.Close()
	ctxlog.FromContext(ctx).Debug("Temporal session closed.")
	return nil
}
