package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/faults"
	"github.com/vk/lanepipe/internal/orchestrator"
	"github.com/vk/lanepipe/internal/readmask"
	"github.com/vk/lanepipe/internal/tagstore"
)

const (
	runInfoFile        = "RunInfo.xml"
	defaultSampleSheet = "SampleSheet.csv"
)

func (a *App) namer() *orchestrator.Namer {
	return &orchestrator.Namer{
		Names:     a.pipeline.Naming.Samples,
		Unmatched: orchestrator.UnmatchedPolicy(a.pipeline.Naming.Unmatched),
	}
}

// buildPlan turns the configuration and the files already in the store into
// the graph of one stage.
func (a *App) buildPlan(ctx context.Context, stage string, store tagstore.Store) (*orchestrator.Plan, error) {
	run := a.pipeline.Run
	switch stage {
	case orchestrator.StageDemux:
		return a.buildDemuxPlan(ctx)
	case orchestrator.StageMap:
		files, err := classify.Discover(ctx, store, run.OutputDir, classify.TypeFASTQ)
		if err != nil {
			return nil, err
		}
		return orchestrator.BuildMapping(orchestrator.MapParams{
			Files:          files,
			Reference:      a.pipeline.Mapping.Reference,
			Threads:        a.pipeline.Mapping.Threads,
			MarkDuplicates: a.pipeline.Mapping.MarkDuplicates,
			OutputDir:      run.OutputDir,
			ScratchDir:     run.ScratchDir,
			Namer:          a.namer(),
		})
	case orchestrator.StageQC:
		files, err := classify.Discover(ctx, store, run.OutputDir, classify.TypeFASTQ, classify.TypeBAM)
		if err != nil {
			return nil, err
		}
		return orchestrator.BuildQC(orchestrator.QCParams{
			Files:     files,
			Reference: a.pipeline.QC.Reference,
			OutputDir: run.OutputDir,
			Namer:     a.namer(),
		})
	default:
		return nil, fmt.Errorf("unknown stage '%s'", stage)
	}
}

func (a *App) buildDemuxPlan(ctx context.Context) (*orchestrator.Plan, error) {
	run := a.pipeline.Run
	if run.RunFolder == "" {
		return nil, &faults.ConfigurationError{Stage: orchestrator.StageDemux, Subject: "run.run_folder", Err: faults.ErrNoInputs}
	}

	f, err := os.Open(filepath.Join(run.RunFolder, runInfoFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open run layout: %w", err)
	}
	reads, err := readmask.ParseRunInfo(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", runInfoFile, err)
	}

	sheetPath := run.SampleSheet
	if sheetPath == "" {
		sheetPath = defaultSampleSheet
	}
	if !filepath.IsAbs(sheetPath) {
		sheetPath = filepath.Join(run.RunFolder, sheetPath)
	}
	sf, err := os.Open(sheetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample sheet: %w", err)
	}
	sheet, err := readmask.ParseSampleSheet(sf)
	sf.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sample sheet %s: %w", sheetPath, err)
	}
	ctxlog.FromContext(ctx).Debug("Run layout loaded.", "reads", len(reads), "samples", len(sheet.Samples), "sheet_version", sheet.Version)

	return orchestrator.BuildDemux(orchestrator.DemuxParams{
		RunFolder:       run.RunFolder,
		SampleSheetPath: sheetPath,
		OutputDir:       run.OutputDir,
		Reads:           reads,
		Sheet:           sheet,
		Lanes:           run.Lanes,
		Mismatches:      run.Mismatches,
	})
}

func (a *App) runStage(ctx context.Context, stage string, store tagstore.Store, exec dag.Executor) error {
	logger := ctxlog.FromContext(ctx).With("stage", stage)

	plan, err := a.buildPlan(ctx, stage, store)
	if err != nil {
		return err
	}
	report, err := orchestrator.Run(ctx, exec, plan)
	if report != nil {
		logger.Info("Tools used.", "tools", report.ToolsUsed.Map())
	}
	if err != nil {
		return err
	}
	logger.Info("Stage result.", "result", report.Result)
	return nil
}
