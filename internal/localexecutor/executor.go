// Package localexecutor runs a dag.Graph in-process on a fixed pool of
// worker goroutines.
//
// Units become ready when their last producer completes. A failed unit
// poisons its transitive dependents, which are marked skipped without
// running, but it never cancels independent branches. Cancelling the
// context skips every unit that has not started yet.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/inmemorystore"
	"github.com/vk/lanepipe/internal/nodestore"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/registry"
)

// Executor implements dag.Executor for local execution.
type Executor struct {
	registry   *registry.Registry
	numWorkers int
	notifier   notify.Notifier
	newStore   func() nodestore.Store
}

// Option customises an Executor.
type Option func(*Executor)

// WithNotifier publishes unit status transitions.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Executor) { e.notifier = n }
}

// WithStore replaces the in-memory unit state store.
func WithStore(newStore func() nodestore.Store) Option {
	return func(e *Executor) { e.newStore = newStore }
}

// New creates a local executor with numWorkers concurrent workers.
func New(reg *registry.Registry, numWorkers int, opts ...Option) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	e := &Executor{
		registry:   reg,
		numWorkers: numWorkers,
		notifier:   notify.Nop{},
		newStore:   inmemorystore.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type unitState struct {
	unit     *dag.Unit
	depCount atomic.Int32
	skipOnce sync.Once
}

// run is the state of one Execute call.
type run struct {
	graph  *dag.Graph
	store  nodestore.Store
	states map[dag.Handle]*unitState
	ready  chan *unitState
	wg     sync.WaitGroup
}

// skippedError is recorded for units that never ran because a producer
// failed. cause is the failed unit at the root of the chain.
type skippedError struct {
	cause     dag.Handle
	causeName string
	err       error
}

func (e *skippedError) Error() string {
	return fmt.Sprintf("skipped due to upstream failure of '%s': %v", e.causeName, e.err)
}

func (e *skippedError) Unwrap() error { return e.err }

// Execute runs g to completion and returns every unit's outcome.
func (e *Executor) Execute(ctx context.Context, g *dag.Graph) (*dag.Results, error) {
	logger := ctxlog.FromContext(ctx)

	if err := e.registry.Validate(g); err != nil {
		return nil, err
	}

	r := &run{
		graph:  g,
		store:  e.newStore(),
		states: make(map[dag.Handle]*unitState, g.Len()),
		ready:  make(chan *unitState, g.Len()),
	}

	logger.Debug("Initializing executor, finding root units...")
	var roots []*unitState
	for _, u := range g.Units() {
		st := &unitState{unit: u}
		st.depCount.Store(int32(len(g.Dependencies(u.Handle))))
		r.states[u.Handle] = st
		if err := r.store.SetStatus(ctx, u.Handle, dag.StatusPending); err != nil {
			return nil, fmt.Errorf("failed to initialise state of %s: %w", u.Name(), err)
		}
		if st.depCount.Load() == 0 {
			roots = append(roots, st)
		}
	}
	logger.Debug("Found all root units.", "count", len(roots))

	r.wg.Add(g.Len())
	for _, st := range roots {
		r.ready <- st
	}

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, r, i)
	}

	logger.Info("Waiting for all units to complete...", "units", g.Len())
	r.wg.Wait()
	close(r.ready)
	logger.Info("All units completed.")

	outcomes, err := r.outcomes(ctx)
	if err != nil {
		return nil, err
	}
	results := dag.NewResults(g, outcomes)

	for _, o := range outcomes {
		if o.Status == dag.StatusFailed {
			u, _ := g.Unit(o.Handle)
			logger.Error("Unit failed execution.", "unit", u.Name(), "error", o.Error)
		}
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// worker is the processing loop of a single concurrent worker.
func (e *Executor) worker(ctx context.Context, r *run, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for st := range r.ready {
		u := st.unit
		workerLogger := logger.With("workerID", workerID, "unit", u.Name())

		if err := ctx.Err(); err != nil {
			st.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping unit execution.")
				e.finishFailed(ctx, r, st, dag.StatusSkipped, err)
				e.skipDependents(ctx, r, st, u, err)
				r.wg.Done()
			})
			continue
		}

		workerLogger.Debug("Worker picked up unit for execution.")
		_ = r.store.SetStatus(ctx, u.Handle, dag.StatusRunning)
		e.notify(ctx, u, dag.StatusRunning, nil)

		out, err := e.runUnit(ctxlog.WithLogger(ctx, workerLogger), r, u)
		if err != nil {
			workerLogger.Error("Unit execution failed.", "error", err)
			e.finishFailed(ctx, r, st, dag.StatusFailed, err)
			e.skipDependents(ctx, r, st, u, err)
			r.wg.Done()
			continue
		}

		workerLogger.Debug("Unit execution succeeded.")
		_ = r.store.SetOutput(ctx, u.Handle, out)
		_ = r.store.SetStatus(ctx, u.Handle, dag.StatusCompleted)
		e.notify(ctx, u, dag.StatusCompleted, nil)

		for _, h := range r.graph.Dependents(u.Handle) {
			dependent := r.states[h]
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent unit.", "dependent", dependent.unit.Name())
				r.ready <- dependent
			}
		}
		r.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (e *Executor) runUnit(ctx context.Context, r *run, u *dag.Unit) (out dag.Outputs, err error) {
	fn, ok := e.registry.Lookup(u.Function)
	if !ok {
		return nil, fmt.Errorf("unit function '%s' is not registered", u.Function)
	}

	inputs, err := dag.ResolveInputs(u.Inputs, func(ref dag.FieldRef) (any, error) {
		outputs, err := r.store.GetOutput(ctx, ref.Unit)
		if err != nil {
			return nil, err
		}
		v, ok := outputs[ref.Field]
		if !ok {
			return nil, fmt.Errorf("unit '%s' completed without output %q", ref.Unit, ref.Field)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unit function '%s' panicked: %v", u.Function, p)
		}
	}()
	return fn(ctx, registry.Inputs(inputs))
}

func (e *Executor) finishFailed(ctx context.Context, r *run, st *unitState, status dag.Status, err error) {
	_ = r.store.SetStatus(ctx, st.unit.Handle, status)
	_ = r.store.SetError(ctx, st.unit.Handle, err)
	e.notify(ctx, st.unit, status, err)
}

// skipDependents recursively marks every downstream unit as skipped and
// releases its slot in the wait group.
func (e *Executor) skipDependents(ctx context.Context, r *run, from *unitState, root *dag.Unit, rootErr error) {
	logger := ctxlog.FromContext(ctx)
	for _, h := range r.graph.Dependents(from.unit.Handle) {
		dependent := r.states[h]
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent unit due to upstream failure.", "unit", dependent.unit.Name(), "dependency", from.unit.Name())
			skipErr := rootErr
			var already *skippedError
			if !errors.As(rootErr, &already) {
				skipErr = &skippedError{cause: root.Handle, causeName: root.Name(), err: rootErr}
			}
			e.finishFailed(ctx, r, dependent, dag.StatusSkipped, skipErr)
			r.wg.Done()
			e.skipDependents(ctx, r, dependent, root, rootErr)
		})
	}
}

func (e *Executor) notify(ctx context.Context, u *dag.Unit, status dag.Status, err error) {
	ev := notify.Event{
		Stage:    notify.StageFrom(ctx),
		Unit:     u.Handle,
		Function: u.Function,
		Label:    u.Label,
		Status:   status,
		Time:     time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	e.notifier.UnitStatus(ctx, ev)
}

// outcomes folds the state store into per-unit outcomes.
func (r *run) outcomes(ctx context.Context) ([]dag.Outcome, error) {
	out := make([]dag.Outcome, 0, r.graph.Len())
	for _, u := range r.graph.Units() {
		status, err := r.store.GetStatus(ctx, u.Handle)
		if err != nil {
			return nil, err
		}
		o := dag.Outcome{Handle: u.Handle, Status: status}

		switch status {
		case dag.StatusCompleted:
			if o.Outputs, err = r.store.GetOutput(ctx, u.Handle); err != nil {
				return nil, err
			}
		case dag.StatusFailed, dag.StatusSkipped:
			unitErr, err := r.store.GetError(ctx, u.Handle)
			if err != nil {
				return nil, err
			}
			var skipped *skippedError
			switch {
			case errors.As(unitErr, &skipped):
				o.Cause = skipped.cause
				o.Error = skipped.err.Error()
			case unitErr != nil:
				o.Error = unitErr.Error()
			}
		}
		out = append(out, o)
	}
	return out, nil
}
