package temporalexec

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/registry"
)

// Activities executes unit functions on a worker.
type Activities struct {
	Registry *registry.Registry
	Logger   *slog.Logger
}

// NewActivities creates the activity set for a worker.
func NewActivities(reg *registry.Registry, logger *slog.Logger) *Activities {
	return &Activities{Registry: reg, Logger: logger}
}

// RunUnit runs one unit function with its resolved inputs.
func (a *Activities) RunUnit(ctx context.Context, req UnitRequest) (UnitResult, error) {
	fn, ok := a.Registry.Lookup(req.Function)
	if !ok {
		return UnitResult{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("unit function '%s' is not registered", req.Function), "UnknownFunction", nil)
	}

	logger := a.Logger.With("stage", req.Stage, "unit", req.Handle, "function", req.Function)
	if req.Label != "" {
		logger = logger.With("label", req.Label)
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	logger.Debug("Running unit.")
	out, err := fn(ctx, registry.Inputs(req.Inputs))
	if err != nil {
		return UnitResult{}, err
	}
	return UnitResult{Outputs: out}, nil
}
