package temporalexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/registry"
)

// Config holds the Temporal connection and scheduling settings.
type Config struct {
	HostPort        string
	Namespace       string
	TaskQueue       string
	ActivityTimeout time.Duration
	MaxAttempts     int32
}

// Backend implements dag.Executor by starting GraphWorkflow.
type Backend struct {
	client   client.Client
	cfg      Config
	registry *registry.Registry
	notifier notify.Notifier
}

// Dial connects to the Temporal frontend.
func Dial(cfg Config, reg *registry.Registry, n notify.Notifier) (*Backend, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &Backend{client: c, cfg: cfg, registry: reg, notifier: n}, nil
}

// Close closes the Temporal client connection.
func (b *Backend) Close() {
	b.client.Close()
}

// NewWorker creates a worker for the backend's task queue. The caller owns
// its lifecycle.
func (b *Backend) NewWorker(logger *slog.Logger) worker.Worker {
	w := worker.New(b.client, b.cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(GraphWorkflow)
	w.RegisterActivity(NewActivities(b.registry, logger))
	return w
}

// Execute starts one workflow for g and waits for it to finish.
func (b *Backend) Execute(ctx context.Context, g *dag.Graph) (*dag.Results, error) {
	logger := ctxlog.FromContext(ctx)

	if err := b.registry.Validate(g); err != nil {
		return nil, err
	}

	req := GraphRequest{
		Stage:           notify.StageFrom(ctx),
		Units:           g.Units(),
		ActivityTimeout: b.cfg.ActivityTimeout,
		MaxAttempts:     b.cfg.MaxAttempts,
	}
	opts := client.StartWorkflowOptions{
		ID:        "lanepipe-" + uuid.NewString(),
		TaskQueue: b.cfg.TaskQueue,
	}
	run, err := b.client.ExecuteWorkflow(ctx, opts, GraphWorkflow, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}
	logger.Info("Started graph workflow.", "workflowID", run.GetID(), "runID", run.GetRunID(), "units", g.Len())

	var res GraphResult
	if err := run.Get(ctx, &res); err != nil {
		return nil, fmt.Errorf("workflow %s failed: %w", run.GetID(), err)
	}

	results := dag.NewResults(g, res.Outcomes)
	for _, o := range results.Outcomes() {
		u, _ := g.Unit(o.Handle)
		b.notifier.UnitStatus(ctx, notify.Event{
			Stage:    req.Stage,
			Unit:     o.Handle,
			Function: u.Function,
			Label:    u.Label,
			Status:   o.Status,
			Error:    o.Error,
			Time:     time.Now(),
		})
	}
	return results, nil
}
