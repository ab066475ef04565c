package readmask

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/lanepipe/internal/faults"
)

// ReadDescriptor is one cycle block of a sequencing run.
type ReadDescriptor struct {
	Number  int
	Cycles  int
	IsIndex bool
}

// Mask holds one component per read descriptor, in run order.
type Mask []string

// String renders the mask in the demultiplexer's protocol form.
func (m Mask) String() string {
	return strings.Join(m, ",")
}

// ComputeMask derives the base mask for a lane. It is a pure function of
// its arguments; reads is not modified.
func ComputeMask(reads []ReadDescriptor, barcode BarcodeSpec) (Mask, error) {
	if len(reads) == 0 {
		return nil, faults.ErrEmptyRunLayout
	}

	ordered := make([]ReadDescriptor, len(reads))
	copy(ordered, reads)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	mask := make(Mask, 0, len(ordered))
	indexOrdinal := 0
	for i, read := range ordered {
		if i > 0 && ordered[i-1].Number == read.Number {
			return nil, fmt.Errorf("duplicate read number %d in run layout", read.Number)
		}
		if read.Cycles < 0 {
			return nil, fmt.Errorf("read %d has negative cycle count %d", read.Number, read.Cycles)
		}

		if !read.IsIndex {
			mask = append(mask, fmt.Sprintf("y%d", read.Cycles))
			continue
		}

		if indexOrdinal >= 2 {
			return nil, fmt.Errorf("%w: read %d is index read #%d", faults.ErrInvalidIndexOrdinal, read.Number, indexOrdinal+1)
		}
		barcodeLen := barcode.Len(indexOrdinal)
		indexOrdinal++

		if barcodeLen > read.Cycles {
			return nil, fmt.Errorf("%w: barcode length %d exceeds %d cycles of read %d",
				faults.ErrBarcodeLongerThanRead, barcodeLen, read.Cycles, read.Number)
		}

		var component strings.Builder
		if barcodeLen > 0 {
			fmt.Fprintf(&component, "I%d", barcodeLen)
		}
		if skip := read.Cycles - barcodeLen; skip > 0 {
			fmt.Fprintf(&component, "n%d", skip)
		}
		mask = append(mask, component.String())
	}

	return mask, nil
}
