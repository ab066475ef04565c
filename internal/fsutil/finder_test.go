package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b", "S2_L001_R1_001.fastq.gz"))
	touch(t, filepath.Join(root, "a", "S1_L001_R1_001.fastq.gz"))
	touch(t, filepath.Join(root, "a", "pipeline.hcl"))
	touch(t, filepath.Join(root, "Stats.json"))

	files, err := FindFiles(root, ".fastq.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "S1_L001_R1_001.fastq.gz"),
		filepath.Join(root, "b", "S2_L001_R1_001.fastq.gz"),
	}, files)

	files, err = FindFiles(root, ".hcl", ".json")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindFiles_Errors(t *testing.T) {
	_, err := FindFiles(t.TempDir())
	assert.Error(t, err)

	_, err = FindFiles(filepath.Join(t.TempDir(), "missing"), ".hcl")
	assert.Error(t, err)
}
