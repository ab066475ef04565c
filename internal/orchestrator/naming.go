package orchestrator

import (
	"fmt"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/faults"
)

// UnmatchedPolicy decides what happens to a barcode without a sample name.
type UnmatchedPolicy string

const (
	// UnmatchedError rejects the stage before anything is dispatched.
	UnmatchedError UnmatchedPolicy = "error"
	// UnmatchedUnnamed names the sample after its barcode.
	UnmatchedUnnamed UnmatchedPolicy = "unnamed"
)

// Namer resolves the sample name used in output file names.
type Namer struct {
	// Names maps barcodes to sample names and wins over file tags.
	Names     map[string]string
	Unmatched UnmatchedPolicy
}

// Name returns the sample name of a barcode group: the configured name, else
// the sample tag of the first file carrying one, else the unmatched policy.
func (n *Namer) Name(stage, barcode string, files []classify.TaggedFile) (string, error) {
	if n != nil {
		if name := n.Names[barcode]; name != "" {
			return name, nil
		}
	}
	for _, f := range files {
		if f.Sample != "" {
			return f.Sample, nil
		}
	}
	if n != nil && n.Unmatched == UnmatchedUnnamed {
		return fmt.Sprintf("Unnamed_%s", barcode), nil
	}
	return "", &faults.ConfigurationError{
		Stage:   stage,
		Subject: fmt.Sprintf("barcode '%s'", barcode),
		Err:     faults.ErrUnnamedBarcode,
	}
}
