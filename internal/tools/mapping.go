package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/orchestrator"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/toolsused"
)

// bwaIndexSuffixes are the files bwa expects next to the reference.
var bwaIndexSuffixes = []string{".amb", ".ann", ".bwt", ".pac", ".sa", ".fai"}

func (m *Module) stageReference(w *workspace, reference string) error {
	if err := w.link(reference, "genome.fa.gz"); err != nil {
		return err
	}
	for _, s := range bwaIndexSuffixes {
		if err := w.linkOptional(reference+s, "genome.fa.gz"+s); err != nil {
			return err
		}
	}
	return nil
}

// publishBam moves sample.bam and its index out of the workspace and tags
// them as the final alignment of a sample.
func (m *Module) publishBam(ctx context.Context, w *workspace, output, barcode, sample string, lane int) error {
	if err := w.run(ctx, "", m.tools.Samtools, "index", "sample.bam"); err != nil {
		return err
	}
	if err := w.export("sample.bam", output); err != nil {
		return err
	}
	if err := w.export("sample.bam.bai", output+".bai"); err != nil {
		return err
	}
	bam := classify.TaggedFile{ID: output, Barcode: barcode, Read: classify.ReadNone, Type: classify.TypeBAM, Lane: lane, Sample: sample}
	if err := m.tag(ctx, bam); err != nil {
		return err
	}
	bam.ID, bam.Type = output+".bai", classify.TypeBAI
	return m.tag(ctx, bam)
}

func (m *Module) mapChunk(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	logger := ctxlog.FromContext(ctx)

	sample, err := in.String(orchestrator.InSample)
	if err != nil {
		return nil, err
	}
	barcode, err := in.String(orchestrator.InBarcode)
	if err != nil {
		return nil, err
	}
	read1, err := in.String(orchestrator.InRead1)
	if err != nil {
		return nil, err
	}
	read2, err := in.OptionalString(orchestrator.InRead2)
	if err != nil {
		return nil, err
	}
	reference, err := in.String(orchestrator.InReference)
	if err != nil {
		return nil, err
	}
	threads, err := in.IntOr(orchestrator.InThreads, 1)
	if err != nil {
		return nil, err
	}
	markDuplicates, err := in.Bool(orchestrator.InMarkDuplicates)
	if err != nil {
		return nil, err
	}
	scratch, err := in.OptionalString(orchestrator.InScratchDir)
	if err != nil {
		return nil, err
	}
	output, err := in.String(orchestrator.InOutput)
	if err != nil {
		return nil, err
	}
	final, err := in.Bool(orchestrator.InFinal)
	if err != nil {
		return nil, err
	}
	lane, err := in.IntOr(orchestrator.InLane, 0)
	if err != nil {
		return nil, err
	}

	w, err := newWorkspace(m.runner, scratch, "map-"+sample, "map sample")
	if err != nil {
		return nil, err
	}
	defer w.close()

	if err := m.stageReference(w, reference); err != nil {
		return nil, err
	}
	if err := w.link(read1, "sample.fastq.gz"); err != nil {
		return nil, err
	}
	bwaArgs := []string{"mem", "-t", strconv.Itoa(threads), "genome.fa.gz", "sample.fastq.gz"}
	if read2 != "" {
		if err := w.link(read2, "sample_2.fastq.gz"); err != nil {
			return nil, err
		}
		bwaArgs = append(bwaArgs, "sample_2.fastq.gz")
	}

	if err := w.run(ctx, "sample0.sam", m.tools.Bwa, bwaArgs...); err != nil {
		return nil, err
	}
	if err := w.run(ctx, "", m.tools.Java, "-jar", m.tools.Picard, "CleanSam", "INPUT=sample0.sam", "OUTPUT=sample1.bam"); err != nil {
		return nil, err
	}
	if err := w.run(ctx, "", m.tools.Samtools, "sort", "-@", strconv.Itoa(threads), "-o", "sample.bam", "sample1.bam"); err != nil {
		return nil, err
	}
	if markDuplicates {
		if err := w.run(ctx, "", m.tools.Java, "-jar", m.tools.Picard, "MarkDuplicates",
			"INPUT=sample.bam", "OUTPUT=sample_deduped.bam", "METRICS_FILE=/dev/null"); err != nil {
			return nil, err
		}
		if err := os.Rename(w.path("sample_deduped.bam"), w.path("sample.bam")); err != nil {
			return nil, err
		}
	}

	if final {
		if err := m.publishBam(ctx, w, output, barcode, sample, lane); err != nil {
			return nil, err
		}
	} else if err := w.export("sample.bam", output); err != nil {
		return nil, err
	}
	logger.Info("Chunk mapped.", "sample", sample, "output", output, "paired", read2 != "")

	return dag.Outputs{dag.FieldPrimary: output, dag.FieldToolsUsed: w.log}, nil
}

func (m *Module) mergeBams(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	sample, err := in.String(orchestrator.InSample)
	if err != nil {
		return nil, err
	}
	barcode, err := in.String(orchestrator.InBarcode)
	if err != nil {
		return nil, err
	}
	bams, err := in.Strings(orchestrator.InBams)
	if err != nil {
		return nil, err
	}
	scratch, err := in.OptionalString(orchestrator.InScratchDir)
	if err != nil {
		return nil, err
	}
	output, err := in.String(orchestrator.InOutput)
	if err != nil {
		return nil, err
	}
	if len(bams) == 0 {
		return nil, fmt.Errorf("no bam files to merge for sample '%s'", sample)
	}

	w, err := newWorkspace(m.runner, scratch, "merge-"+sample, "merge bams")
	if err != nil {
		return nil, err
	}
	defer w.close()

	args := []string{"merge", "sample.bam"}
	for i, bam := range bams {
		name := fmt.Sprintf("bam_files-%d", i)
		if err := w.link(bam, name); err != nil {
			return nil, err
		}
		args = append(args, name)
	}
	if err := w.run(ctx, "", m.tools.Samtools, args...); err != nil {
		return nil, err
	}
	if err := m.publishBam(ctx, w, output, barcode, sample, 0); err != nil {
		return nil, err
	}
	// Chunks stay until the merged BAM is published.
	for _, bam := range bams {
		if err := os.Remove(bam); err != nil && !errors.Is(err, fs.ErrNotExist) {
			ctxlog.FromContext(ctx).Warn("Failed to remove merged chunk.", "sample", sample, "bam", bam, "error", err)
		}
	}

	return dag.Outputs{dag.FieldPrimary: output, dag.FieldToolsUsed: w.log}, nil
}

func (m *Module) collectBams(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	bams, err := in.Strings(orchestrator.InResults)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), bams...)
	sort.Strings(sorted)
	return dag.Outputs{dag.FieldPrimary: sorted, dag.FieldToolsUsed: toolsused.BranchLog{Name: "collect"}}, nil
}
