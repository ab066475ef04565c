package app

import (
	"context"
	"fmt"

	"github.com/vk/lanepipe/internal/ctxlog"
)

// Run executes the configured stages in order and stops at the first
// failing stage.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	logger.Debug("App.Run method started.")

	a.startHealthcheckServer(ctx)
	defer a.closeHealthcheckServer(ctx)

	store, err := a.openStore()
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	notifier, closeNotifier, err := a.openNotifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect notifier: %w", err)
	}
	defer closeNotifier()

	sess, err := a.sessionFactory().NewSession(ctx, a.newRegistry(store), notifier)
	if err != nil {
		return fmt.Errorf("failed to open execution session: %w", err)
	}
	defer sess.Close(ctx)
	exec, err := sess.GetExecutor()
	if err != nil {
		return err
	}

	for _, stage := range a.config.stages() {
		logger.Info("Starting stage.", "stage", stage)
		if err := a.runStage(ctx, stage, store, exec); err != nil {
			return fmt.Errorf("stage '%s' failed: %w", stage, err)
		}
	}
	logger.Info("Execution finished.")
	return nil
}
