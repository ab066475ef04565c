package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vk/lanepipe/internal/app"
	"github.com/vk/lanepipe/internal/hcl_adapter"
	"github.com/vk/lanepipe/internal/tagstore"
	"github.com/vk/lanepipe/internal/tools"
)

// Pipeline describes one harness run. Files are written below a fresh root
// directory that HCL sees as env.ROOT; every .hcl file under config/ is
// loaded.
type Pipeline struct {
	Files  map[string]string
	Runner tools.Runner
	Stage  string
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Err       error
	App       *app.App
	Store     *tagstore.Memory
}

// RunPipeline runs the app end to end on an in-memory store and the local
// executor.
func RunPipeline(t *testing.T, p Pipeline) *HarnessResult {
	t.Helper()
	return RunPipelineWithContext(context.Background(), t, p)
}

// RunPipelineWithContext is RunPipeline with a caller provided context.
func RunPipelineWithContext(ctx context.Context, t *testing.T, p Pipeline) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	for name, content := range p.Files {
		WriteFile(t, filepath.Join(root, name), content)
	}

	stage := p.Stage
	if stage == "" {
		stage = app.StageAll
	}
	cfg, err := app.NewConfig(app.Config{
		ConfigPaths: []string{filepath.Join(root, "config")},
		Stage:       stage,
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
	})
	if err != nil {
		return &HarnessResult{Root: root, Err: err}
	}

	logs := &SafeBuffer{}
	store := tagstore.NewMemory()
	loader := &hcl_adapter.Loader{Environ: []string{"ROOT=" + root}}

	a, err := app.New(logs, cfg, loader, app.WithStore(store), app.WithRunner(p.Runner))
	if err != nil {
		return &HarnessResult{Root: root, LogOutput: logs.String(), Err: err, Store: store}
	}
	err = a.Run(ctx)
	return &HarnessResult{Root: root, LogOutput: logs.String(), Err: err, App: a, Store: store}
}
