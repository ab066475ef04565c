package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/notify"
	"github.com/vk/lanepipe/internal/toolsused"
)

// StageReport is what a finished stage leaves behind.
type StageReport struct {
	Stage   string
	Results *dag.Results
	// Result is the resolved stage result, nil when it is unresolvable.
	Result any
	// ToolsUsed merges the logs of every unit that completed, so a failed
	// stage still reports what ran.
	ToolsUsed toolsused.Report
}

// Run hands the plan to exec, waits for every unit and checks the outcome.
// The report is returned even when the stage failed.
func Run(ctx context.Context, exec dag.Executor, plan *Plan) (*StageReport, error) {
	ctx = ctxlog.With(notify.WithStage(ctx, plan.Stage), "stage", plan.Stage)
	logger := ctxlog.FromContext(ctx)

	logger.Info("Dispatching stage graph.", "units", plan.Graph.Len(), "branches", plan.Branches())
	results, execErr := exec.Execute(ctx, plan.Graph)
	if results == nil {
		return nil, fmt.Errorf("stage '%s': %w", plan.Stage, execErr)
	}

	report := &StageReport{Stage: plan.Stage, Results: results}
	if v, err := results.Resolve(plan.Result); err == nil {
		report.Result = v
	}

	var logs []toolsused.BranchLog
	for _, ref := range plan.ToolsUsed {
		v, err := results.Resolve(ref)
		if err != nil {
			continue
		}
		l, err := toolsused.Decode(v)
		if err != nil {
			logger.Warn("Ignoring malformed tools log.", "unit", ref.Unit, "error", err)
			continue
		}
		logs = append(logs, l)
	}
	report.ToolsUsed = toolsused.MergeLogs(logs)

	checkErr := Check(plan, results)
	if execErr != nil {
		execErr = fmt.Errorf("stage '%s': %w", plan.Stage, execErr)
	}
	if err := errors.Join(execErr, checkErr); err != nil {
		logger.Error("Stage failed.", "error", err)
		return report, err
	}
	logger.Info("Stage completed.")
	return report, nil
}
