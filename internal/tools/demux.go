package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/fsutil"
	"github.com/vk/lanepipe/internal/orchestrator"
	"github.com/vk/lanepipe/internal/readmask"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/toolsused"
)

// fastqName matches demultiplexer output such as
// alpha_S1_L001_R1_001.fastq.gz and Undetermined_S0_L001_R2_001.fastq.gz.
var fastqName = regexp.MustCompile(`^(.+)_S(\d+)_L(\d{3})_([RI])(\d)_\d{3}\.fastq\.gz$`)

const (
	undeterminedSample = "Undetermined"
	// noIndexBarcode labels the reads of a lane without multiplexing.
	noIndexBarcode = "NoIndex"
)

// parseFastqName returns the sample name, lane and read number of a
// demultiplexed FASTQ file. Index read files are reported with ok false.
func parseFastqName(name string) (sample string, lane int, read classify.ReadNumber, ok bool) {
	m := fastqName.FindStringSubmatch(name)
	if m == nil || m[4] != "R" {
		return "", 0, "", false
	}
	lane, _ = strconv.Atoi(m[3])
	return m[1], lane, classify.ReadNumber(m[5]), true
}

func (m *Module) demuxLane(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	logger := ctxlog.FromContext(ctx)

	runFolder, err := in.String(orchestrator.InRunFolder)
	if err != nil {
		return nil, err
	}
	sheet, err := in.OptionalString(orchestrator.InSampleSheet)
	if err != nil {
		return nil, err
	}
	outputDir, err := in.String(orchestrator.InOutputDir)
	if err != nil {
		return nil, err
	}
	lane, err := in.Int(orchestrator.InLane)
	if err != nil {
		return nil, err
	}
	mask, err := in.String(orchestrator.InMask)
	if err != nil {
		return nil, err
	}
	mismatches, err := in.IntOr(orchestrator.InMismatches, 1)
	if err != nil {
		return nil, err
	}
	var samples map[string]string
	if err := in.Decode(orchestrator.InSamples, &samples); err != nil {
		return nil, err
	}

	laneDir := filepath.Join(outputDir, fmt.Sprintf("Unaligned_L%d", lane))
	args := []string{
		"--runfolder-dir", runFolder,
		"--output-dir", laneDir,
		"--barcode-mismatches", strconv.Itoa(mismatches),
		"--use-bases-mask", fmt.Sprintf("%d:%s", lane, mask),
		"--tiles", fmt.Sprintf("s_%d", lane),
	}
	if sheet != "" {
		args = append(args, "--sample-sheet", sheet)
	}
	cmd := Command{Path: m.tools.Bcl2fastq, Args: args, Dir: runFolder}
	log := toolsused.BranchLog{Name: "demultiplex"}
	log.Record(cmd.String())
	if err := m.runner.Run(ctx, cmd); err != nil {
		return nil, err
	}

	paths, err := fsutil.FindFiles(laneDir, ".fastq.gz")
	if err != nil {
		return nil, fmt.Errorf("failed to list demultiplexed files: %w", err)
	}

	var ids []string
	for _, p := range paths {
		sample, fileLane, read, ok := parseFastqName(filepath.Base(p))
		if !ok {
			logger.Debug("Ignoring non-read output.", "path", p)
			continue
		}
		barcode := readmask.UndeterminedBarcode
		if sample != undeterminedSample {
			bc, known := samples[sample]
			if !known {
				return nil, fmt.Errorf("demultiplexer produced '%s' for unknown sample '%s'", filepath.Base(p), sample)
			}
			barcode = bc
			if barcode == "" {
				barcode = noIndexBarcode
			}
		}
		f := classify.TaggedFile{ID: p, Barcode: barcode, Read: read, Type: classify.TypeFASTQ, Lane: fileLane, Sample: sample}
		if err := m.tag(ctx, f); err != nil {
			return nil, err
		}
		ids = append(ids, p)
	}
	logger.Info("Lane demultiplexed.", "lane", lane, "files", len(ids))

	return dag.Outputs{dag.FieldPrimary: ids, dag.FieldToolsUsed: log}, nil
}

func (m *Module) collectLanes(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	var perLane [][]string
	if err := in.Decode(orchestrator.InResults, &perLane); err != nil {
		return nil, err
	}
	var ids []string
	for _, lane := range perLane {
		ids = append(ids, lane...)
	}
	sort.Strings(ids)
	return dag.Outputs{dag.FieldPrimary: ids, dag.FieldToolsUsed: toolsused.BranchLog{Name: "collect"}}, nil
}
