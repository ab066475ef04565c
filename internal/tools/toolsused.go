package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shenwei356/xopen"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/orchestrator"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/toolsused"
)

func (m *Module) mergeToolsUsed(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	stage, err := in.String(orchestrator.InStage)
	if err != nil {
		return nil, err
	}
	outputDir, err := in.String(orchestrator.InOutputDir)
	if err != nil {
		return nil, err
	}
	var logs []toolsused.BranchLog
	if err := in.Decode(orchestrator.InLogs, &logs); err != nil {
		return nil, err
	}

	report := toolsused.MergeLogs(logs)
	path := filepath.Join(outputDir, stage+"_tools_used.txt")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	w, err := xopen.Wopen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create '%s': %w", path, err)
	}
	if _, err := report.WriteTo(w); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write '%s': %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Tools used report written.", "path", path, "tools", len(report.Groups))

	return dag.Outputs{dag.FieldPrimary: path}, nil
}
