package orchestrator

import (
	"errors"
	"fmt"

	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/faults"
)

// Check converts unit outcomes into stage errors. Every failed branch unit
// yields a BranchExecutionError naming its branch, every failed stage level
// unit an AggregationError. Skipped units are consequences of those and are
// not reported again.
func Check(plan *Plan, results *dag.Results) error {
	var errs []error
	incomplete := 0
	for _, u := range plan.Graph.Units() {
		o := results.Outcome(u.Handle)
		switch o.Status {
		case dag.StatusCompleted:
			continue
		case dag.StatusFailed:
		default:
			incomplete++
			continue
		}

		if branch, ok := plan.Branch(u.Handle); ok {
			errs = append(errs, &faults.BranchExecutionError{
				Stage:    plan.Stage,
				Branch:   branch,
				Function: u.Function,
				Message:  o.Error,
			})
			continue
		}
		errs = append(errs, &faults.AggregationError{
			Stage:    plan.Stage,
			Function: u.Function,
			Message:  o.Error,
		})
	}

	if len(errs) == 0 && incomplete > 0 {
		return fmt.Errorf("stage '%s' did not complete: %d units did not run", plan.Stage, incomplete)
	}
	return errors.Join(errs...)
}
