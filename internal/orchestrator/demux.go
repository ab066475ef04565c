package orchestrator

import (
	"fmt"
	"sort"

	"github.com/vk/lanepipe/internal/dag"
	"github.com/vk/lanepipe/internal/faults"
	"github.com/vk/lanepipe/internal/readmask"
)

// DemuxParams describes one demultiplexing run.
type DemuxParams struct {
	RunFolder       string
	SampleSheetPath string
	OutputDir       string
	Reads           []readmask.ReadDescriptor
	Sheet           *readmask.SampleSheet
	// Lanes restricts the run to the given lanes. Empty means every lane
	// of the sample sheet.
	Lanes      []int
	Mismatches int
}

// BuildDemux builds one demux_lane unit per lane. The read mask of every
// lane is computed here, so a malformed layout or an ambiguous barcode
// length fails before any unit is dispatched.
func BuildDemux(p DemuxParams) (*Plan, error) {
	if p.Sheet == nil {
		return nil, &faults.ConfigurationError{Stage: StageDemux, Subject: "sample sheet", Err: faults.ErrNoInputs}
	}
	lanes := p.Lanes
	if len(lanes) == 0 {
		lanes = p.Sheet.Lanes()
	}
	lanes = append([]int(nil), lanes...)
	sort.Ints(lanes)
	if len(lanes) == 0 {
		return nil, &faults.ConfigurationError{Stage: StageDemux, Err: faults.ErrNoInputs}
	}

	s := newStageBuilder(StageDemux)
	var members []dag.Handle
	for _, lane := range lanes {
		label := fmt.Sprintf("lane %d", lane)

		spec, err := readmask.LaneBarcodeSpec(p.Sheet.LaneBarcodes(lane))
		if err != nil {
			return nil, &faults.ConfigurationError{Stage: StageDemux, Subject: label, Err: err}
		}
		mask, err := readmask.ComputeMask(p.Reads, spec)
		if err != nil {
			return nil, &faults.ConfigurationError{Stage: StageDemux, Subject: label, Err: err}
		}

		samples := make(map[string]string)
		for _, smp := range p.Sheet.Lane(lane) {
			samples[smp.Name] = smp.Barcode
		}

		h := s.fanOut(FuncDemuxLane, label, label, map[string]dag.Input{
			InRunFolder:   dag.Value(p.RunFolder),
			InSampleSheet: dag.Value(p.SampleSheetPath),
			InOutputDir:   dag.Value(p.OutputDir),
			InLane:        dag.Value(lane),
			InMask:        dag.Value(mask.String()),
			InMismatches:  dag.Value(p.Mismatches),
			InSamples:     dag.Value(samples),
		})
		members = append(members, h)
	}

	result := s.gather(FuncCollectLanes, "lanes", "", InResults, members, nil)
	return s.finish(result, p.OutputDir)
}
