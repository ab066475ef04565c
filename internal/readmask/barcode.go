package readmask

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/lanepipe/internal/faults"
)

// UndeterminedBarcode is the label demultiplexers give to reads whose
// barcode matched no sample.
const UndeterminedBarcode = "Undetermined"

// BarcodeSpec is the barcode length shape of a lane: no barcode, a single
// index, or a dual index.
type BarcodeSpec struct {
	lengths [2]int
	count   int
}

// NoBarcode is the shape of a lane without barcoding.
func NoBarcode() BarcodeSpec { return BarcodeSpec{} }

// SingleIndex is the shape of a single-index lane.
func SingleIndex(length int) BarcodeSpec {
	return BarcodeSpec{lengths: [2]int{length, 0}, count: 1}
}

// DualIndex is the shape of a dual-index lane.
func DualIndex(first, second int) BarcodeSpec {
	return BarcodeSpec{lengths: [2]int{first, second}, count: 2}
}

// IsNone reports whether the lane carries no barcode.
func (b BarcodeSpec) IsNone() bool { return b.count == 0 }

// IsDual reports whether the lane is dual-indexed.
func (b BarcodeSpec) IsDual() bool { return b.count == 2 }

// Len returns the barcode length used for the index read with the given
// zero-based ordinal. Missing elements are 0.
func (b BarcodeSpec) Len(ordinal int) int {
	if ordinal < 0 || ordinal >= b.count {
		return 0
	}
	return b.lengths[ordinal]
}

func (b BarcodeSpec) String() string {
	switch b.count {
	case 0:
		return "none"
	case 1:
		return fmt.Sprintf("%d", b.lengths[0])
	default:
		return fmt.Sprintf("%d-%d", b.lengths[0], b.lengths[1])
	}
}

// ParseBarcode returns the shape of a single barcode string. Empty and
// Undetermined barcodes have no index. A hyphen joins the two halves of a
// dual index; an empty second half means the sample is single-indexed.
func ParseBarcode(barcode string) (BarcodeSpec, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" || barcode == UndeterminedBarcode {
		return NoBarcode(), nil
	}
	if !strings.Contains(barcode, "-") {
		return SingleIndex(len(barcode)), nil
	}

	parts := strings.Split(barcode, "-")
	if len(parts) != 2 {
		return BarcodeSpec{}, fmt.Errorf("barcode %q has %d parts, want at most 2", barcode, len(parts))
	}
	if parts[0] == "" {
		return BarcodeSpec{}, fmt.Errorf("barcode %q has an empty first index", barcode)
	}
	if parts[1] == "" {
		return SingleIndex(len(parts[0])), nil
	}
	return DualIndex(len(parts[0]), len(parts[1])), nil
}

// LaneBarcodeSpec determines the single barcode shape shared by every sample
// of a lane. More than one distinct shape is ErrAmbiguousBarcodeLength, since
// one mask must serve the whole lane.
func LaneBarcodeSpec(barcodes []string) (BarcodeSpec, error) {
	distinct := make(map[BarcodeSpec]struct{})
	for _, bc := range barcodes {
		spec, err := ParseBarcode(bc)
		if err != nil {
			return BarcodeSpec{}, err
		}
		if spec.IsNone() {
			continue
		}
		distinct[spec] = struct{}{}
	}

	switch len(distinct) {
	case 0:
		return NoBarcode(), nil
	case 1:
		for spec := range distinct {
			return spec, nil
		}
	}

	found := make([]string, 0, len(distinct))
	for spec := range distinct {
		found = append(found, spec.String())
	}
	sort.Strings(found)
	return BarcodeSpec{}, fmt.Errorf("%w: found %s", faults.ErrAmbiguousBarcodeLength, strings.Join(found, ", "))
}
