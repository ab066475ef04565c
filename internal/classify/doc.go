// Package classify turns a flat collection of tagged result files into the
// sample and read groups that drive a stage's fan-out.
//
// Grouping is a pure partition: every input file lands in exactly one
// group and the order of files inside a group follows the input order, so
// read-1 and read-2 chunk lists stay aligned when they are zipped.
package classify
