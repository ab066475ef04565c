package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/fastqstats"
	"github.com/vk/lanepipe/internal/orchestrator"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/toolsused"
)

// QCSummary is the QC result of one sample.
type QCSummary struct {
	Sample           string              `json:"sample"`
	Barcode          string              `json:"barcode"`
	Paired           bool                `json:"paired"`
	Reads            fastqstats.Summary  `json:"reads"`
	FastQCReports    []string            `json:"fastqcReports,omitempty"`
	AlignmentSummary []map[string]string `json:"alignmentSummary,omitempty"`
	InsertSize       []map[string]string `json:"insertSize,omitempty"`
	MismatchPerCycle []int64             `json:"mismatchPerCycle,omitempty"`
	StatsFile        string              `json:"statsFile"`
}

// QCReport is the stage level QC summary.
type QCReport struct {
	Samples []QCSummary `json:"samples"`
}

func (m *Module) qcSample(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	logger := ctxlog.FromContext(ctx)

	sample, err := in.String(orchestrator.InSample)
	if err != nil {
		return nil, err
	}
	barcode, err := in.String(orchestrator.InBarcode)
	if err != nil {
		return nil, err
	}
	read1, err := in.Strings(orchestrator.InRead1)
	if err != nil {
		return nil, err
	}
	var read2 []string
	if in.Has(orchestrator.InRead2) {
		if read2, err = in.Strings(orchestrator.InRead2); err != nil {
			return nil, err
		}
	}
	bam, err := in.OptionalString(orchestrator.InBam)
	if err != nil {
		return nil, err
	}
	reference, err := in.OptionalString(orchestrator.InReference)
	if err != nil {
		return nil, err
	}
	outputDir, err := in.String(orchestrator.InOutputDir)
	if err != nil {
		return nil, err
	}

	summary := QCSummary{Sample: sample, Barcode: barcode, Paired: len(read2) > 0}
	if summary.Reads, err = fastqstats.Sample(ctx, read1, read2); err != nil {
		return nil, err
	}

	w, err := newWorkspace(m.runner, "", "qc-"+sample, "qc sample")
	if err != nil {
		return nil, err
	}
	defer w.close()

	var staged []string
	stage := func(files []string, prefix string) error {
		for i, f := range files {
			name := fmt.Sprintf("%s-%d.fastq.gz", prefix, i)
			if err := w.link(f, name); err != nil {
				return err
			}
			staged = append(staged, name)
		}
		return nil
	}
	if err := stage(read1, "sample"); err != nil {
		return nil, err
	}
	if err := stage(read2, "sample_2"); err != nil {
		return nil, err
	}
	if err := w.run(ctx, "", m.tools.Fastqc, append([]string{"--outdir", ".", "--noextract"}, staged...)...); err != nil {
		return nil, err
	}
	for _, name := range staged {
		zip := strings.TrimSuffix(name, ".fastq.gz") + "_fastqc.zip"
		dst := filepath.Join(outputDir, "fastqc", sample+"_"+zip)
		if err := w.export(zip, dst); err != nil {
			return nil, fmt.Errorf("fastqc report missing: %w", err)
		}
		summary.FastQCReports = append(summary.FastQCReports, dst)
	}

	if bam != "" {
		if err := m.alignmentQC(ctx, w, &summary, bam, reference, outputDir); err != nil {
			return nil, err
		}
	}

	summary.StatsFile = filepath.Join(outputDir, sample+"_stats.json")
	if err := writeJSON(summary.StatsFile, summary); err != nil {
		return nil, err
	}
	logger.Info("Sample QC finished.", "sample", sample, "reads", summary.Reads.Read1.Reads)

	return dag.Outputs{dag.FieldPrimary: summary, dag.FieldToolsUsed: w.log}, nil
}

// alignmentQC collects the alignment summary, insert size and mismatch per
// cycle metrics of a mapped sample.
func (m *Module) alignmentQC(ctx context.Context, w *workspace, summary *QCSummary, bam, reference, outputDir string) error {
	if err := w.link(bam, "sample.bam"); err != nil {
		return err
	}

	if reference != "" {
		if err := w.link(reference, "genome.fa.gz"); err != nil {
			return err
		}
		if err := w.run(ctx, "", m.tools.Java, "-jar", m.tools.Picard, "CollectAlignmentSummaryMetrics",
			"VALIDATION_STRINGENCY=LENIENT", "INPUT=sample.bam",
			"OUTPUT=sample.alignment_summary_metrics", "REFERENCE_SEQUENCE=genome.fa.gz"); err != nil {
			return err
		}
		rows, err := parsePicardMetrics(w.path("sample.alignment_summary_metrics"))
		if err != nil {
			return err
		}
		summary.AlignmentSummary = rows
		if err := w.export("sample.alignment_summary_metrics", filepath.Join(outputDir, "miscellany", summary.Sample+".alignment_summary_metrics")); err != nil {
			return err
		}

		if summary.Paired {
			if err := w.run(ctx, "", m.tools.Java, "-jar", m.tools.Picard, "CollectInsertSizeMetrics",
				"VALIDATION_STRINGENCY=LENIENT", "INPUT=sample.bam", "REFERENCE_SEQUENCE=genome.fa.gz",
				"OUTPUT=sample.insert_size_metrics", "HISTOGRAM_FILE=sample.insert_size_histogram.pdf",
				"MINIMUM_PCT=0.4"); err != nil {
				return err
			}
			rows, err := parsePicardMetrics(w.path("sample.insert_size_metrics"))
			if err != nil {
				return err
			}
			summary.InsertSize = rows
			if err := w.export("sample.insert_size_metrics", filepath.Join(outputDir, "miscellany", summary.Sample+".insert_size_metrics")); err != nil {
				return err
			}
		}
	}

	if err := w.run(ctx, "sample.stats", m.tools.Samtools, "stats", "sample.bam"); err != nil {
		return err
	}
	mpc, err := parseMismatchPerCycle(w.path("sample.stats"))
	if err != nil {
		return err
	}
	summary.MismatchPerCycle = mpc
	return nil
}

// parsePicardMetrics returns the rows of the metrics table of a Picard
// output file, keyed by column name.
func parsePicardMetrics(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	defer f.Close()

	var (
		rows    []map[string]string
		header  []string
		inTable bool
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "## METRICS CLASS"):
			inTable = true
			continue
		case !inTable:
			continue
		case strings.TrimSpace(line) == "":
			if header != nil {
				return rows, nil
			}
			continue
		}

		fields := strings.Split(line, "\t")
		if header == nil {
			header = fields
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("no metrics table in '%s'", filepath.Base(path))
	}
	return rows, nil
}

// parseMismatchPerCycle sums the MPC section of samtools stats output per
// cycle.
func parseMismatchPerCycle(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	defer f.Close()

	var counts []int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 3 || fields[0] != "MPC" {
			continue
		}
		var total int64
		for _, v := range fields[2:] {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid MPC line %q: %w", sc.Text(), err)
			}
			total += n
		}
		counts = append(counts, total)
	}
	return counts, sc.Err()
}

func (m *Module) qcReport(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
	var samples []QCSummary
	if err := in.Decode(orchestrator.InResults, &samples); err != nil {
		return nil, err
	}
	outputDir, err := in.String(orchestrator.InOutputDir)
	if err != nil {
		return nil, err
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Sample < samples[j].Sample })

	path := filepath.Join(outputDir, "qc_report.json")
	if err := writeJSON(path, QCReport{Samples: samples}); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("QC report written.", "path", path, "samples", len(samples))
	return dag.Outputs{dag.FieldPrimary: path, dag.FieldToolsUsed: toolsused.BranchLog{Name: "qc report"}}, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	w, err := xopen.Wopen(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		w.Close()
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return w.Close()
}
