// Package readmask reconciles a run's read layout with the barcode lengths
// actually used in a lane and renders the demultiplexer's base mask.
//
// The mask is a comma separated list with exactly one component per read,
// in run order:
//
//	y<N>       keep N cycles of a biological read
//	I<K>       use K cycles of an index read as barcode
//	I<K>n<M>   use K cycles as barcode and skip the remaining M
//	n<M>       skip a whole index read (no barcode in the lane)
//
// An index read with zero cycles and no barcode yields an empty component.
package readmask
