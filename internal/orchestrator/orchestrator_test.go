package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/faults"
	"github.com/vk/lanepipe/internal/localexecutor"
	"github.com/vk/lanepipe/internal/readmask"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/toolsused"
)

func layout() []readmask.ReadDescriptor {
	return []readmask.ReadDescriptor{
		{Number: 1, Cycles: 101},
		{Number: 2, Cycles: 8, IsIndex: true},
		{Number: 3, Cycles: 101},
	}
}

func fastq(id, barcode string, read classify.ReadNumber) classify.TaggedFile {
	return classify.TaggedFile{ID: id, Barcode: barcode, Read: read, Type: classify.TypeFASTQ, Lane: 1, Sample: "s_" + barcode}
}

func bam(id, barcode string) classify.TaggedFile {
	return classify.TaggedFile{ID: id, Barcode: barcode, Read: classify.ReadNone, Type: classify.TypeBAM, Lane: 1}
}

func unitsByFunction(p *Plan) map[string][]*dag.Unit {
	out := make(map[string][]*dag.Unit)
	for _, u := range p.Graph.Units() {
		out[u.Function] = append(out[u.Function], u)
	}
	return out
}

// fakeRegistry registers every stage function as a unit that echoes its
// label and logs one command. Functions named in failing fail for the given
// labels.
func fakeRegistry(failing map[string]string) *registry.Registry {
	reg := registry.New()
	fn := func(name string) registry.Func {
		return func(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
			label, _ := in.OptionalString(InBarcode)
			if failing[label] == name {
				return nil, fmt.Errorf("%s exited with status 1", name)
			}
			results := in[InResults]
			if results == nil {
				results = in[InBams]
			}
			if results == nil {
				results = name + ":" + label
			}
			return dag.Outputs{
				dag.FieldPrimary:   results,
				dag.FieldToolsUsed: toolsused.BranchLog{Name: name, Commands: []string{name + " --run"}},
			}, nil
		}
	}
	for _, name := range []string{FuncDemuxLane, FuncCollectLanes, FuncMapChunk, FuncMergeBams, FuncCollectBams, FuncQCSample, FuncQCReport} {
		reg.Register(name, fn(name))
	}
	reg.Register(FuncMergeToolsUsed, func(ctx context.Context, in registry.Inputs) (dag.Outputs, error) {
		return dag.Outputs{dag.FieldPrimary: "tools_used.txt"}, nil
	})
	return reg
}

func TestBuildDemux_OneUnitPerLane(t *testing.T) {
	sheet := &readmask.SampleSheet{Version: 1, Samples: []readmask.Sample{
		{Lane: 1, Name: "alpha", Barcode: "ACGTAC"},
		{Lane: 1, Name: "beta", Barcode: "TTAGGC"},
		{Lane: 2, Name: "gamma", Barcode: "GGCCTTAA"},
	}}

	plan, err := BuildDemux(DemuxParams{RunFolder: "/runs/r1", OutputDir: "/out", Reads: layout(), Sheet: sheet, Mismatches: 1})
	require.NoError(t, err)

	byFn := unitsByFunction(plan)
	require.Len(t, byFn[FuncDemuxLane], 2)
	require.Len(t, byFn[FuncCollectLanes], 1)
	require.Len(t, byFn[FuncMergeToolsUsed], 1)

	assert.Equal(t, "y101,I6n2,y101", byFn[FuncDemuxLane][0].Inputs[InMask].Value)
	assert.Equal(t, "y101,I8,y101", byFn[FuncDemuxLane][1].Inputs[InMask].Value)
	assert.Equal(t, map[string]string{"alpha": "ACGTAC", "beta": "TTAGGC"}, byFn[FuncDemuxLane][0].Inputs[InSamples].Value)
	assert.Equal(t, 2, plan.Branches())

	branch, ok := plan.Branch(byFn[FuncDemuxLane][1].Handle)
	assert.True(t, ok)
	assert.Equal(t, "lane 2", branch)
	assert.Equal(t, byFn[FuncCollectLanes][0].Handle, plan.Result.Unit)
}

func TestBuildDemux_SingleLaneHasNoFanIn(t *testing.T) {
	sheet := &readmask.SampleSheet{Samples: []readmask.Sample{{Lane: 3, Name: "alpha", Barcode: "ACGTAC"}}}

	plan, err := BuildDemux(DemuxParams{Reads: layout(), Sheet: sheet})
	require.NoError(t, err)

	byFn := unitsByFunction(plan)
	assert.Empty(t, byFn[FuncCollectLanes])
	require.Len(t, byFn[FuncDemuxLane], 1)
	assert.Equal(t, dag.OutputRef(byFn[FuncDemuxLane][0].Handle, dag.FieldPrimary), plan.Result)
	assert.Equal(t, plan.Graph.Len(), 2)
}

func TestBuildDemux_ConfigurationErrors(t *testing.T) {
	t.Run("ambiguous barcode length", func(t *testing.T) {
		sheet := &readmask.SampleSheet{Samples: []readmask.Sample{
			{Lane: 1, Name: "a", Barcode: "ACGTAC"},
			{Lane: 1, Name: "b", Barcode: "ACGTACGT"},
		}}
		_, err := BuildDemux(DemuxParams{Reads: layout(), Sheet: sheet})

		var cfgErr *faults.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "lane 1", cfgErr.Subject)
		assert.ErrorIs(t, err, faults.ErrAmbiguousBarcodeLength)
	})

	t.Run("empty run layout", func(t *testing.T) {
		sheet := &readmask.SampleSheet{Samples: []readmask.Sample{{Lane: 1, Name: "a", Barcode: "ACGTAC"}}}
		_, err := BuildDemux(DemuxParams{Sheet: sheet})
		assert.ErrorIs(t, err, faults.ErrEmptyRunLayout)
	})

	t.Run("barcode longer than read", func(t *testing.T) {
		sheet := &readmask.SampleSheet{Samples: []readmask.Sample{{Lane: 1, Name: "a", Barcode: "ACGTACGTAC"}}}
		_, err := BuildDemux(DemuxParams{Reads: layout(), Sheet: sheet})
		assert.ErrorIs(t, err, faults.ErrBarcodeLongerThanRead)
	})

	t.Run("no lanes", func(t *testing.T) {
		_, err := BuildDemux(DemuxParams{Reads: layout(), Sheet: &readmask.SampleSheet{}})
		assert.ErrorIs(t, err, faults.ErrNoInputs)
	})
}

func TestBuildMapping_NestedFanIn(t *testing.T) {
	files := []classify.TaggedFile{
		fastq("a1", "AAAA", classify.Read1), fastq("a2", "AAAA", classify.Read2),
		fastq("b1", "CCCC", classify.Read1), fastq("b2", "CCCC", classify.Read2),
		fastq("b3", "CCCC", classify.Read1), fastq("b4", "CCCC", classify.Read2),
		fastq("u1", readmask.UndeterminedBarcode, classify.Read1),
	}

	plan, err := BuildMapping(MapParams{Files: files, Reference: "genome.fa.gz", Threads: 4, OutputDir: "/out", ScratchDir: "/tmp"})
	require.NoError(t, err)

	byFn := unitsByFunction(plan)
	require.Len(t, byFn[FuncMapChunk], 3, "undetermined reads are not mapped")
	require.Len(t, byFn[FuncMergeBams], 1, "only the sample with two chunks is merged")
	require.Len(t, byFn[FuncCollectBams], 1)

	single := byFn[FuncMapChunk][0]
	assert.Equal(t, "AAAA", single.Label)
	assert.Equal(t, "/out/s_AAAA.bam", single.Inputs[InOutput].Value)
	assert.Equal(t, true, single.Inputs[InFinal].Value)
	assert.Equal(t, "a2", single.Inputs[InRead2].Value)

	chunk := byFn[FuncMapChunk][2]
	assert.Equal(t, "CCCC/1", chunk.Label)
	assert.Equal(t, "/tmp/s_CCCC_chunk1.bam", chunk.Inputs[InOutput].Value)
	assert.Equal(t, "b3", chunk.Inputs[InRead1].Value)
	assert.Equal(t, "b4", chunk.Inputs[InRead2].Value)

	merge := byFn[FuncMergeBams][0]
	assert.Equal(t, "/out/s_CCCC.bam", merge.Inputs[InOutput].Value)
	assert.Len(t, merge.Inputs[InBams].Refs, 2)
	branch, _ := plan.Branch(merge.Handle)
	assert.Equal(t, "CCCC", branch)

	logs, ok := plan.Graph.Unit(plan.Logs)
	require.True(t, ok)
	assert.Len(t, logs.DependsOn, 5)
	assert.Len(t, logs.Inputs[InLogs].Refs, 5)
}

func TestBuildMapping_Errors(t *testing.T) {
	t.Run("unequal mates", func(t *testing.T) {
		files := []classify.TaggedFile{
			fastq("a1", "AAAA", classify.Read1), fastq("a2", "AAAA", classify.Read2), fastq("a3", "AAAA", classify.Read1),
		}
		_, err := BuildMapping(MapParams{Files: files})
		var clsErr *faults.ClassificationError
		require.ErrorAs(t, err, &clsErr)
		assert.Equal(t, "a1", clsErr.FileID)
	})

	t.Run("unnamed barcode with strict naming", func(t *testing.T) {
		f := fastq("a1", "AAAA", classify.Read1)
		f.Sample = ""
		_, err := BuildMapping(MapParams{Files: []classify.TaggedFile{f}, Namer: &Namer{Unmatched: UnmatchedError}})
		assert.ErrorIs(t, err, faults.ErrUnnamedBarcode)
	})

	t.Run("only undetermined reads", func(t *testing.T) {
		_, err := BuildMapping(MapParams{Files: []classify.TaggedFile{fastq("u1", readmask.UndeterminedBarcode, classify.Read1)}})
		assert.ErrorIs(t, err, faults.ErrNoInputs)
	})
}

func TestNamer(t *testing.T) {
	files := []classify.TaggedFile{{ID: "f", Barcode: "AAAA"}, {ID: "g", Barcode: "AAAA", Sample: "tagged"}}

	name, err := (&Namer{Names: map[string]string{"AAAA": "configured"}}).Name(StageMap, "AAAA", files)
	require.NoError(t, err)
	assert.Equal(t, "configured", name)

	name, err = (*Namer)(nil).Name(StageMap, "AAAA", files)
	require.NoError(t, err)
	assert.Equal(t, "tagged", name)

	name, err = (&Namer{Unmatched: UnmatchedUnnamed}).Name(StageMap, "AAAA", files[:1])
	require.NoError(t, err)
	assert.Equal(t, "Unnamed_AAAA", name)
}

func TestBuildQC(t *testing.T) {
	files := []classify.TaggedFile{
		fastq("a1", "AAAA", classify.Read1), fastq("a2", "AAAA", classify.Read2), bam("abam", "AAAA"),
		fastq("c1", "CCCC", classify.Read1), bam("cbam", "CCCC"),
	}

	t.Run("mapped lane", func(t *testing.T) {
		plan, err := BuildQC(QCParams{Files: files, Reference: "genome.fa.gz", OutputDir: "/out"})
		require.NoError(t, err)

		byFn := unitsByFunction(plan)
		require.Len(t, byFn[FuncQCSample], 2)
		require.Len(t, byFn[FuncQCReport], 1)
		assert.Equal(t, []string{"a1"}, byFn[FuncQCSample][0].Inputs[InRead1].Value)
		assert.Equal(t, []string{"a2"}, byFn[FuncQCSample][0].Inputs[InRead2].Value)
		assert.Equal(t, "cbam", byFn[FuncQCSample][1].Inputs[InBam].Value)
		_, paired := byFn[FuncQCSample][1].Inputs[InRead2]
		assert.False(t, paired)
	})

	t.Run("missing bam", func(t *testing.T) {
		_, err := BuildQC(QCParams{Files: files[:2], Reference: "genome.fa.gz"})
		var clsErr *faults.ClassificationError
		require.ErrorAs(t, err, &clsErr)
		assert.Contains(t, clsErr.Error(), "found 0")
	})

	t.Run("unmapped lane ignores bams", func(t *testing.T) {
		plan, err := BuildQC(QCParams{Files: files[:2]})
		require.NoError(t, err)
		byFn := unitsByFunction(plan)
		require.Len(t, byFn[FuncQCSample], 1)
		assert.Empty(t, byFn[FuncQCReport])
		_, hasBam := byFn[FuncQCSample][0].Inputs[InBam]
		assert.False(t, hasBam)
	})
}

func TestRun_BranchFailureIsolated(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	var files []classify.TaggedFile
	for _, bc := range []string{"B1", "B2", "B3"} {
		files = append(files, fastq(bc+"-1", bc, classify.Read1), fastq(bc+"-2", bc, classify.Read2))
	}
	plan, err := BuildQC(QCParams{Files: files, OutputDir: "/out"})
	require.NoError(t, err)

	exec := localexecutor.New(fakeRegistry(map[string]string{"B2": FuncQCSample}), 3)
	report, err := Run(ctx, exec, plan)
	require.Error(t, err)
	require.NotNil(t, report)

	var branchErr *faults.BranchExecutionError
	require.ErrorAs(t, err, &branchErr)
	assert.Equal(t, "B2", branchErr.Branch)
	assert.Equal(t, FuncQCSample, branchErr.Function)
	assert.Contains(t, branchErr.Message, "qc_sample exited with status 1")
	var aggErr *faults.AggregationError
	assert.False(t, errors.As(err, &aggErr))

	byFn := unitsByFunction(plan)
	for _, u := range byFn[FuncQCSample] {
		o := report.Results.Outcome(u.Handle)
		if u.Label == "B2" {
			assert.Equal(t, dag.StatusFailed, o.Status)
			continue
		}
		v, err := report.Results.Resolve(dag.OutputRef(u.Handle, dag.FieldPrimary))
		require.NoError(t, err)
		assert.Equal(t, "qc_sample:"+u.Label, v)
	}

	logs := report.Results.Outcome(plan.Logs)
	assert.Equal(t, dag.StatusSkipped, logs.Status, "log aggregation never runs")
	assert.Nil(t, report.Result)
	assert.Equal(t, []string{"qc_sample --run (x2)"}, report.ToolsUsed.Map()["QC_SAMPLE"])
}

func TestRun_Success(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	files := []classify.TaggedFile{
		fastq("a1", "AAAA", classify.Read1), fastq("a2", "AAAA", classify.Read2),
		fastq("c1", "CCCC", classify.Read1), fastq("c2", "CCCC", classify.Read2),
		fastq("c3", "CCCC", classify.Read1), fastq("c4", "CCCC", classify.Read2),
	}
	plan, err := BuildMapping(MapParams{Files: files, OutputDir: "/out", ScratchDir: "/tmp"})
	require.NoError(t, err)

	report, err := Run(ctx, localexecutor.New(fakeRegistry(nil), 2), plan)
	require.NoError(t, err)
	assert.True(t, report.Results.Succeeded())
	assert.Len(t, report.Result, 2)
	assert.Equal(t, []string{"map_chunk --run (x3)"}, report.ToolsUsed.Map()["MAP_CHUNK"])
	assert.Equal(t, []string{"merge_bams --run (x1)"}, report.ToolsUsed.Map()["MERGE_BAMS"])
}

func TestCheck_AggregationFailure(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	files := []classify.TaggedFile{fastq("a1", "AAAA", classify.Read1), fastq("c1", "CCCC", classify.Read1)}
	plan, err := BuildQC(QCParams{Files: files})
	require.NoError(t, err)

	reg := fakeRegistry(nil)
	failing := registry.New()
	for _, name := range reg.Names() {
		fn, _ := reg.Lookup(name)
		if name == FuncQCReport {
			fn = func(context.Context, registry.Inputs) (dag.Outputs, error) {
				return nil, errors.New("cannot write report")
			}
		}
		failing.Register(name, fn)
	}

	_, err = Run(ctx, localexecutor.New(failing, 2), plan)
	var aggErr *faults.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, FuncQCReport, aggErr.Function)
	assert.Equal(t, "cannot write report", aggErr.Message)
}
