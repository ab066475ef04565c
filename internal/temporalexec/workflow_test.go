package temporalexec

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/registry"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register("echo", func(_ context.Context, in registry.Inputs) (dag.Outputs, error) {
		v, err := in.String("v")
		if err != nil {
			return nil, err
		}
		return dag.Outputs{dag.FieldPrimary: v}, nil
	})
	reg.Register("join", func(_ context.Context, in registry.Inputs) (dag.Outputs, error) {
		parts, err := in.Strings("parts")
		if err != nil {
			return nil, err
		}
		out := ""
		for _, p := range parts {
			out += p
		}
		return dag.Outputs{dag.FieldPrimary: out}, nil
	})
	reg.Register("fail", func(context.Context, registry.Inputs) (dag.Outputs, error) {
		return nil, errors.New("bwa exited with status 1")
	})
	return reg
}

func runGraph(t *testing.T, g *dag.Graph) GraphResult {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GraphWorkflow)
	env.RegisterActivity(NewActivities(testRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil))))

	env.ExecuteWorkflow(GraphWorkflow, GraphRequest{Stage: "map", Units: g.Units(), ActivityTimeout: time.Minute})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res GraphResult
	require.NoError(t, env.GetWorkflowResult(&res))
	return res
}

func TestGraphWorkflow_FanOutFanIn(t *testing.T) {
	b := dag.NewBuilder()
	var refs []dag.FieldRef
	for _, v := range []string{"a", "b", "c"} {
		h := b.Submit("echo", map[string]dag.Input{"v": dag.Value(v)}, nil, dag.WithLabel(v))
		refs = append(refs, dag.OutputRef(h, dag.FieldPrimary))
	}
	join := b.Submit("join", map[string]dag.Input{"parts": dag.RefList(refs)}, nil)
	g, err := b.Graph()
	require.NoError(t, err)

	results := dag.NewResults(g, runGraph(t, g).Outcomes)
	assert.True(t, results.Succeeded())
	v, err := results.Resolve(dag.OutputRef(join, dag.FieldPrimary))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestGraphWorkflow_FailureSkipsDependents(t *testing.T) {
	b := dag.NewBuilder()
	a := b.Submit("echo", map[string]dag.Input{"v": dag.Value("a")}, nil)
	bad := b.Submit("fail", nil, nil)
	c := b.Submit("echo", map[string]dag.Input{"v": dag.Value("c")}, nil)
	join := b.Submit("join", map[string]dag.Input{"parts": dag.RefList([]dag.FieldRef{
		dag.OutputRef(a, dag.FieldPrimary),
		dag.OutputRef(bad, dag.FieldPrimary),
		dag.OutputRef(c, dag.FieldPrimary),
	})}, nil)
	logs := b.Submit("echo", map[string]dag.Input{"v": dag.Value("logs")}, []dag.Handle{join})
	g, err := b.Graph()
	require.NoError(t, err)

	results := dag.NewResults(g, runGraph(t, g).Outcomes)
	assert.Equal(t, dag.StatusCompleted, results.Outcome(a).Status)
	assert.Equal(t, dag.StatusCompleted, results.Outcome(c).Status)

	failed := results.Outcome(bad)
	assert.Equal(t, dag.StatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "bwa exited with status 1")

	for _, h := range []dag.Handle{join, logs} {
		o := results.Outcome(h)
		assert.Equal(t, dag.StatusSkipped, o.Status)
		assert.Equal(t, bad, o.Cause)
		assert.Contains(t, o.Error, "bwa exited with status 1")
	}
}

func TestGraphWorkflow_InvalidGraph(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GraphWorkflow)

	units := []*dag.Unit{{Handle: "u1", Function: "echo", DependsOn: []dag.Handle{"missing"}}}
	env.ExecuteWorkflow(GraphWorkflow, GraphRequest{Units: units})
	require.True(t, env.IsWorkflowCompleted())
	assert.ErrorContains(t, env.GetWorkflowError(), "unknown unit 'missing'")
}

func TestActivities_UnknownFunction(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(NewActivities(registry.New(), slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := env.ExecuteActivity(RunUnitActivity, UnitRequest{Handle: "u1", Function: "nope"})
	assert.ErrorContains(t, err, "unit function 'nope' is not registered")
}

func TestActivityOptions_Defaults(t *testing.T) {
	opts := activityOptions(GraphRequest{})
	assert.Equal(t, time.Hour, opts.StartToCloseTimeout)
	assert.Equal(t, int32(1), opts.RetryPolicy.MaximumAttempts)

	opts = activityOptions(GraphRequest{ActivityTimeout: time.Minute, MaxAttempts: 3})
	assert.Equal(t, time.Minute, opts.StartToCloseTimeout)
	assert.Equal(t, int32(3), opts.RetryPolicy.MaximumAttempts)
}
