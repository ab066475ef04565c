// Package temporalexec runs a dag.Graph as a Temporal workflow. Every unit
// becomes one activity execution, so a long pipeline survives worker
// restarts and each tool invocation gets its own timeout and retry policy.
package temporalexec

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/vk/lanepipe/internal/dag"
)

// RunUnitActivity is the activity type registered by Activities.
const RunUnitActivity = "RunUnit"

const defaultActivityTimeout = time.Hour

// GraphRequest is the input of GraphWorkflow.
type GraphRequest struct {
	Stage           string        `json:"stage,omitempty"`
	Units           []*dag.Unit   `json:"units"`
	ActivityTimeout time.Duration `json:"activityTimeout,omitempty"`
	MaxAttempts     int32         `json:"maxAttempts,omitempty"`
}

// GraphResult is the output of GraphWorkflow, one outcome per unit in
// submission order.
type GraphResult struct {
	Outcomes []dag.Outcome `json:"outcomes"`
}

// UnitRequest is the input of the RunUnit activity. Inputs are already
// resolved.
type UnitRequest struct {
	Stage    string         `json:"stage,omitempty"`
	Handle   dag.Handle     `json:"handle"`
	Function string         `json:"function"`
	Label    string         `json:"label,omitempty"`
	Inputs   map[string]any `json:"inputs"`
}

// UnitResult is the output of the RunUnit activity.
type UnitResult struct {
	Outputs dag.Outputs `json:"outputs"`
}

var errUpstreamFailed = errors.New("upstream unit did not complete")

func activityOptions(req GraphRequest) workflow.ActivityOptions {
	timeout := req.ActivityTimeout
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	attempts := req.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    attempts,
		},
	}
}

// GraphWorkflow schedules every unit as soon as its producers complete. A
// failed unit skips its transitive dependents and leaves every other branch
// running.
func GraphWorkflow(ctx workflow.Context, req GraphRequest) (GraphResult, error) {
	logger := workflow.GetLogger(ctx)

	g, err := dag.NewGraph(req.Units)
	if err != nil {
		return GraphResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidGraph", err)
	}
	actCtx := workflow.WithActivityOptions(ctx, activityOptions(req))

	futures := make(map[dag.Handle]workflow.Future, g.Len())
	settables := make(map[dag.Handle]workflow.Settable, g.Len())
	outcomes := make(map[dag.Handle]dag.Outcome, g.Len())
	for _, u := range g.Units() {
		futures[u.Handle], settables[u.Handle] = workflow.NewFuture(ctx)
	}

	for _, u := range g.Units() {
		u := u
		workflow.Go(ctx, func(gctx workflow.Context) {
			settable := settables[u.Handle]

			produced := make(map[dag.Handle]dag.Outputs)
			for _, p := range g.Dependencies(u.Handle) {
				var out dag.Outputs
				if err := futures[p].Get(gctx, &out); err != nil {
					upstream := outcomes[p]
					cause := p
					if upstream.Status == dag.StatusSkipped {
						cause = upstream.Cause
					}
					logger.Warn("Skipping unit due to upstream failure.", "unit", u.Name(), "dependency", p)
					outcomes[u.Handle] = dag.Outcome{Handle: u.Handle, Status: dag.StatusSkipped, Cause: cause, Error: upstream.Error}
					settable.SetError(errUpstreamFailed)
					return
				}
				produced[p] = out
			}

			inputs, err := dag.ResolveInputs(u.Inputs, func(ref dag.FieldRef) (any, error) {
				v, ok := produced[ref.Unit][ref.Field]
				if !ok {
					return nil, fmt.Errorf("unit '%s' completed without output %q", ref.Unit, ref.Field)
				}
				return v, nil
			})
			if err != nil {
				outcomes[u.Handle] = dag.Outcome{Handle: u.Handle, Status: dag.StatusFailed, Error: err.Error()}
				settable.SetError(err)
				return
			}

			var res UnitResult
			err = workflow.ExecuteActivity(actCtx, RunUnitActivity, UnitRequest{
				Stage:    req.Stage,
				Handle:   u.Handle,
				Function: u.Function,
				Label:    u.Label,
				Inputs:   inputs,
			}).Get(gctx, &res)
			if err != nil {
				logger.Error("Unit execution failed.", "unit", u.Name(), "error", err)
				outcomes[u.Handle] = dag.Outcome{Handle: u.Handle, Status: dag.StatusFailed, Error: activityMessage(err)}
				settable.SetError(err)
				return
			}
			outcomes[u.Handle] = dag.Outcome{Handle: u.Handle, Status: dag.StatusCompleted, Outputs: res.Outputs}
			settable.Set(res.Outputs, nil)
		})
	}

	for _, u := range g.Units() {
		_ = futures[u.Handle].Get(ctx, nil)
	}

	result := GraphResult{Outcomes: make([]dag.Outcome, 0, g.Len())}
	for _, u := range g.Units() {
		result.Outcomes = append(result.Outcomes, outcomes[u.Handle])
	}
	return result, nil
}

// activityMessage strips the activity envelope and returns what the unit
// function reported.
func activityMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Error()
	}
	return err.Error()
}
