package orchestrator

// Stage names.
const (
	StageDemux = "demux"
	StageMap   = "map"
	StageQC    = "qc"
)

// Unit functions referenced by stage graphs.
const (
	FuncDemuxLane      = "demux_lane"
	FuncCollectLanes   = "collect_lanes"
	FuncMapChunk       = "map_chunk"
	FuncMergeBams      = "merge_bams"
	FuncCollectBams    = "collect_bams"
	FuncQCSample       = "qc_sample"
	FuncQCReport       = "qc_report"
	FuncMergeToolsUsed = "merge_tools_used"
)

// Input names shared between graph builders and unit functions.
const (
	InStage          = "stage"
	InRunFolder      = "run_folder"
	InSampleSheet    = "sample_sheet"
	InOutputDir      = "output_dir"
	InScratchDir     = "scratch_dir"
	InLane           = "lane"
	InMask           = "mask"
	InMismatches     = "mismatches"
	InSamples        = "samples"
	InSample         = "sample"
	InBarcode        = "barcode"
	InChunk          = "chunk"
	InRead1          = "read1"
	InRead2          = "read2"
	InBam            = "bam"
	InBams           = "bams"
	InReference      = "reference"
	InThreads        = "threads"
	InMarkDuplicates = "mark_duplicates"
	InOutput         = "output"
	InFinal          = "final"
	InResults        = "results"
	InLogs           = "logs"
)
