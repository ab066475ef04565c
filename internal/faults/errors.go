// Package faults defines the error taxonomy shared by every pipeline stage.
//
// Configuration and classification errors are raised while a stage graph is
// being built, before anything is dispatched. Branch execution and
// aggregation errors are raised after an executor reports unit outcomes.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRunLayout is returned when a run declares no reads.
	ErrEmptyRunLayout = errors.New("run layout has no reads")
	// ErrInvalidIndexOrdinal is returned for a run with more than two index reads.
	ErrInvalidIndexOrdinal = errors.New("more than two index reads in run layout")
	// ErrBarcodeLongerThanRead is returned when a barcode does not fit its index read.
	ErrBarcodeLongerThanRead = errors.New("barcode longer than index read")
	// ErrAmbiguousBarcodeLength is returned when one lane carries barcodes of different lengths.
	ErrAmbiguousBarcodeLength = errors.New("ambiguous barcode length in lane")
	// ErrUnnamedBarcode is returned when a barcode has no sample name and naming is strict.
	ErrUnnamedBarcode = errors.New("barcode has no sample name")
	// ErrNoInputs is returned when a stage finds nothing to fan out over.
	ErrNoInputs = errors.New("stage has no inputs")
)

// ConfigurationError reports malformed run metadata or pipeline settings.
type ConfigurationError struct {
	Stage   string
	Subject string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("configuration error in stage '%s': %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("configuration error in stage '%s' for %s: %v", e.Stage, e.Subject, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ClassificationError reports an input file whose metadata tags are missing
// or invalid. FileID always names the offending file.
type ClassificationError struct {
	FileID string
	Tag    string
	Value  string
	Reason string
}

func (e *ClassificationError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("cannot classify file '%s': %s", e.FileID, e.Reason)
	}
	return fmt.Sprintf("cannot classify file '%s': tag '%s'=%q %s", e.FileID, e.Tag, e.Value, e.Reason)
}

// BranchExecutionError reports the failure of one fan-out branch. Branch is
// the barcode, sample or lane label of the branch, never an internal handle.
type BranchExecutionError struct {
	Stage    string
	Branch   string
	Function string
	Message  string
}

func (e *BranchExecutionError) Error() string {
	return fmt.Sprintf("stage '%s': branch '%s' failed in %s: %s", e.Stage, e.Branch, e.Function, e.Message)
}

// AggregationError reports the failure of a fan-in or log aggregation unit.
type AggregationError struct {
	Stage    string
	Function string
	Message  string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("stage '%s': aggregation %s failed: %s", e.Stage, e.Function, e.Message)
}
