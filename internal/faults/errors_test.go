package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError_Unwrap(t *testing.T) {
	err := fmt.Errorf("building lane 3: %w", &ConfigurationError{
		Stage:   "demux",
		Subject: "lane 3",
		Err:     ErrAmbiguousBarcodeLength,
	})

	assert.ErrorIs(t, err, ErrAmbiguousBarcodeLength)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "lane 3", cfgErr.Subject)
	assert.Contains(t, err.Error(), "stage 'demux' for lane 3")
}

func TestClassificationError_Message(t *testing.T) {
	t.Run("with tag", func(t *testing.T) {
		err := &ClassificationError{FileID: "runs/a.fastq.gz", Tag: "read", Value: "3", Reason: "is not one of 1, 2, none"}
		assert.Equal(t, `cannot classify file 'runs/a.fastq.gz': tag 'read'="3" is not one of 1, 2, none`, err.Error())
	})

	t.Run("without tag", func(t *testing.T) {
		err := &ClassificationError{FileID: "x.bam", Reason: "no metadata"}
		assert.Equal(t, "cannot classify file 'x.bam': no metadata", err.Error())
	})
}

func TestBranchExecutionError_JoinedIsFindable(t *testing.T) {
	joined := errors.Join(
		&BranchExecutionError{Stage: "map", Branch: "ACGTAC", Function: "map_chunk", Message: "bwa exited 1"},
		&BranchExecutionError{Stage: "map", Branch: "TTAGGC", Function: "map_chunk", Message: "bwa exited 2"},
	)

	var branchErr *BranchExecutionError
	require.ErrorAs(t, joined, &branchErr)
	assert.Equal(t, "ACGTAC", branchErr.Branch)
	assert.Contains(t, joined.Error(), "branch 'TTAGGC' failed in map_chunk: bwa exited 2")
}
