package readmask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/lanepipe/internal/faults"
)

var singleIndexLayout = []ReadDescriptor{
	{Number: 1, Cycles: 101, IsIndex: false},
	{Number: 2, Cycles: 8, IsIndex: true},
	{Number: 3, Cycles: 101, IsIndex: false},
}

var dualIndexLayout = []ReadDescriptor{
	{Number: 1, Cycles: 101, IsIndex: false},
	{Number: 2, Cycles: 8, IsIndex: true},
	{Number: 3, Cycles: 8, IsIndex: true},
	{Number: 4, Cycles: 101, IsIndex: false},
}

func TestComputeMask(t *testing.T) {
	tests := []struct {
		name    string
		reads   []ReadDescriptor
		barcode BarcodeSpec
		want    string
	}{
		{name: "short barcode skips remaining index cycles", reads: singleIndexLayout, barcode: SingleIndex(6), want: "y101,I6n2,y101"},
		{name: "barcode fills index read", reads: singleIndexLayout, barcode: SingleIndex(8), want: "y101,I8,y101"},
		{name: "dual index", reads: dualIndexLayout, barcode: DualIndex(8, 8), want: "y101,I8,I8,y101"},
		{name: "no barcode skips whole index read", reads: singleIndexLayout, barcode: NoBarcode(), want: "y101,n8,y101"},
		{name: "single barcode on dual layout skips second index", reads: dualIndexLayout, barcode: SingleIndex(8), want: "y101,I8,n8,y101"},
		{name: "single end run", reads: []ReadDescriptor{{Number: 1, Cycles: 50}}, barcode: NoBarcode(), want: "y50"},
		{
			name:    "zero cycle index read without barcode is an empty component",
			reads:   []ReadDescriptor{{Number: 1, Cycles: 50}, {Number: 2, Cycles: 0, IsIndex: true}},
			barcode: NoBarcode(),
			want:    "y50,",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mask, err := ComputeMask(tc.reads, tc.barcode)
			require.NoError(t, err)
			assert.Equal(t, tc.want, mask.String())
			assert.Len(t, mask, len(tc.reads))
		})
	}
}

func TestComputeMask_OrdersByReadNumber(t *testing.T) {
	shuffled := []ReadDescriptor{singleIndexLayout[2], singleIndexLayout[0], singleIndexLayout[1]}

	mask, err := ComputeMask(shuffled, SingleIndex(6))
	require.NoError(t, err)
	assert.Equal(t, "y101,I6n2,y101", mask.String())
	assert.Equal(t, 3, shuffled[0].Number, "input must not be reordered in place")
}

func TestComputeMask_Idempotent(t *testing.T) {
	first, err := ComputeMask(dualIndexLayout, DualIndex(6, 8))
	require.NoError(t, err)
	second, err := ComputeMask(dualIndexLayout, DualIndex(6, 8))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeMask_Errors(t *testing.T) {
	t.Run("empty layout", func(t *testing.T) {
		_, err := ComputeMask(nil, SingleIndex(6))
		assert.ErrorIs(t, err, faults.ErrEmptyRunLayout)
	})

	t.Run("barcode longer than index read", func(t *testing.T) {
		_, err := ComputeMask(singleIndexLayout, SingleIndex(10))
		assert.ErrorIs(t, err, faults.ErrBarcodeLongerThanRead)
	})

	t.Run("three index reads", func(t *testing.T) {
		reads := []ReadDescriptor{
			{Number: 1, Cycles: 8, IsIndex: true},
			{Number: 2, Cycles: 8, IsIndex: true},
			{Number: 3, Cycles: 8, IsIndex: true},
		}
		_, err := ComputeMask(reads, DualIndex(8, 8))
		assert.ErrorIs(t, err, faults.ErrInvalidIndexOrdinal)
	})

	t.Run("duplicate read numbers", func(t *testing.T) {
		reads := []ReadDescriptor{{Number: 1, Cycles: 8}, {Number: 1, Cycles: 8}}
		_, err := ComputeMask(reads, NoBarcode())
		assert.ErrorContains(t, err, "duplicate read number 1")
	})
}

func TestLaneBarcodeSpec(t *testing.T) {
	tests := []struct {
		name     string
		barcodes []string
		want     BarcodeSpec
	}{
		{name: "no barcodes", barcodes: nil, want: NoBarcode()},
		{name: "only undetermined and blanks", barcodes: []string{"", "Undetermined"}, want: NoBarcode()},
		{name: "single index", barcodes: []string{"ACGTAC", "TTAGGC", ""}, want: SingleIndex(6)},
		{name: "dual index", barcodes: []string{"ACGTACGT-TTAGGCAA", "GGGGCCCC-AAAATTTT"}, want: DualIndex(8, 8)},
		{name: "empty second half is single index", barcodes: []string{"ACGTAC-", "TTAGGC-"}, want: SingleIndex(6)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := LaneBarcodeSpec(tc.barcodes)
			require.NoError(t, err)
			assert.Equal(t, tc.want, spec)
		})
	}
}

func TestLaneBarcodeSpec_Ambiguous(t *testing.T) {
	t.Run("different single lengths", func(t *testing.T) {
		_, err := LaneBarcodeSpec([]string{"ACGTAC", "ACGTACGT"})
		require.ErrorIs(t, err, faults.ErrAmbiguousBarcodeLength)
		assert.ErrorContains(t, err, "found 6, 8")
	})

	t.Run("single mixed with dual", func(t *testing.T) {
		_, err := LaneBarcodeSpec([]string{"ACGTACGT", "ACGTACGT-TTAGGCAA"})
		assert.ErrorIs(t, err, faults.ErrAmbiguousBarcodeLength)
	})
}

func TestParseBarcode_TooManyParts(t *testing.T) {
	_, err := ParseBarcode("AC-GT-AA")
	assert.ErrorContains(t, err, "3 parts")
}
