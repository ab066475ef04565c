package orchestrator

import (
	"fmt"
	"path/filepath"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/faults"
	"github.com/vk/lanepipe/internal/readmask"
)

// MapParams describes one mapping run over demultiplexed FASTQ files.
type MapParams struct {
	Files          []classify.TaggedFile
	Reference      string
	Threads        int
	MarkDuplicates bool
	OutputDir      string
	ScratchDir     string
	Namer          *Namer
}

// BuildMapping nests the fan-out pattern: one map_chunk unit per mate pair,
// a merge_bams unit for samples with more than one chunk, and a stage level
// collect_bams unit when more than one sample is mapped. Undetermined reads
// are not mapped.
func BuildMapping(p MapParams) (*Plan, error) {
	groups := classify.ClassifyByBarcode(classify.OfType(p.Files, classify.TypeFASTQ))
	delete(groups, readmask.UndeterminedBarcode)
	if len(groups) == 0 {
		return nil, &faults.ConfigurationError{Stage: StageMap, Subject: "fastq files", Err: faults.ErrNoInputs}
	}

	s := newStageBuilder(StageMap)
	var samples []dag.Handle
	for _, barcode := range classify.SortedKeys(groups) {
		files := groups[barcode]
		name, err := p.Namer.Name(StageMap, barcode, files)
		if err != nil {
			return nil, err
		}
		byRead, err := classify.ClassifyByRead(files)
		if err != nil {
			return nil, err
		}
		chunks, err := classify.Pair(byRead).Chunks()
		if err != nil {
			return nil, err
		}

		final := filepath.Join(p.OutputDir, name+".bam")
		var chunkUnits []dag.Handle
		for _, c := range chunks {
			output, label := final, barcode
			if len(chunks) > 1 {
				output = filepath.Join(p.ScratchDir, fmt.Sprintf("%s_chunk%d.bam", name, c.Index))
				label = fmt.Sprintf("%s/%d", barcode, c.Index)
			}
			inputs := map[string]dag.Input{
				InSample:         dag.Value(name),
				InBarcode:        dag.Value(barcode),
				InChunk:          dag.Value(c.Index),
				InRead1:          dag.Value(c.Read1.ID),
				InReference:      dag.Value(p.Reference),
				InThreads:        dag.Value(p.Threads),
				InMarkDuplicates: dag.Value(p.MarkDuplicates),
				InScratchDir:     dag.Value(p.ScratchDir),
				InOutput:         dag.Value(output),
				InFinal:          dag.Value(len(chunks) == 1),
			}
			if c.Read2 != nil {
				inputs[InRead2] = dag.Value(c.Read2.ID)
			}
			if c.Read1.Lane > 0 {
				inputs[InLane] = dag.Value(c.Read1.Lane)
			}
			chunkUnits = append(chunkUnits, s.fanOut(FuncMapChunk, label, barcode, inputs))
		}

		ref := s.gather(FuncMergeBams, barcode, barcode, InBams, chunkUnits, map[string]dag.Input{
			InSample:     dag.Value(name),
			InBarcode:    dag.Value(barcode),
			InScratchDir: dag.Value(p.ScratchDir),
			InOutput:     dag.Value(final),
		})
		samples = append(samples, ref.Unit)
	}

	result := s.gather(FuncCollectBams, "bams", "", InResults, samples, nil)
	return s.finish(result, p.OutputDir)
}
