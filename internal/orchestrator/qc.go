package orchestrator

import (
	"fmt"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/faults"
	"github.com/vk/lanepipe/internal/readmask"
	"github.com/vk/lanepipe/internal/tagstore"
)

// QCParams describes one QC run. When Reference is set the lane was mapped
// and every sample must come with exactly one BAM file.
type QCParams struct {
	Files     []classify.TaggedFile
	Reference string
	OutputDir string
	Namer     *Namer
}

// BuildQC builds one qc_sample unit per barcode and a qc_report fan-in.
func BuildQC(p QCParams) (*Plan, error) {
	groups := classify.ClassifyByBarcode(p.Files)
	delete(groups, readmask.UndeterminedBarcode)

	s := newStageBuilder(StageQC)
	var members []dag.Handle
	for _, barcode := range classify.SortedKeys(groups) {
		files := groups[barcode]
		fastqs := classify.OfType(files, classify.TypeFASTQ)
		if len(fastqs) == 0 {
			continue
		}
		name, err := p.Namer.Name(StageQC, barcode, fastqs)
		if err != nil {
			return nil, err
		}
		byRead, err := classify.ClassifyByRead(fastqs)
		if err != nil {
			return nil, err
		}
		pairing := classify.Pair(byRead)

		inputs := map[string]dag.Input{
			InSample:    dag.Value(name),
			InBarcode:   dag.Value(barcode),
			InRead1:     dag.Value(classify.IDs(pairing.Read1)),
			InOutputDir: dag.Value(p.OutputDir),
		}
		if pairing.Paired {
			inputs[InRead2] = dag.Value(classify.IDs(pairing.Read2))
		}
		if p.Reference != "" {
			bams := classify.OfType(files, classify.TypeBAM)
			if len(bams) != 1 {
				return nil, &faults.ClassificationError{
					FileID: fastqs[0].ID,
					Tag:    tagstore.KeyBarcode,
					Value:  barcode,
					Reason: fmt.Sprintf("should match exactly one BAM file, found %d", len(bams)),
				}
			}
			inputs[InBam] = dag.Value(bams[0].ID)
			inputs[InReference] = dag.Value(p.Reference)
		}
		members = append(members, s.fanOut(FuncQCSample, barcode, barcode, inputs))
	}
	if len(members) == 0 {
		return nil, &faults.ConfigurationError{Stage: StageQC, Subject: "fastq files", Err: faults.ErrNoInputs}
	}

	result := s.gather(FuncQCReport, "report", "", InResults, members, map[string]dag.Input{
		InOutputDir: dag.Value(p.OutputDir),
	})
	return s.finish(result, p.OutputDir)
}
