package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shenwei356/xopen"
	"github.com/stretchr/testify/require"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteFastq writes a FASTQ file with n reads of seq, gzip compressed when
// path ends in .gz.
func WriteFastq(t *testing.T, path string, n int, seq string) string {
	t.Helper()
	require.NoError(t, CreateFastq(path, n, seq))
	return path
}

// CreateFastq is WriteFastq for code running outside the test goroutine.
func CreateFastq(path string, n int, seq string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	w, err := xopen.Wopen(path)
	if err != nil {
		return err
	}
	qual := strings.Repeat("I", len(seq))
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(w, "@read%d\n%s\n+\n%s\n", i, seq, qual); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// RunInfo renders a RunInfo.xml with one read per cycle count; counts
// prefixed with "I" are index reads.
func RunInfo(reads ...string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\"?>\n<RunInfo Version=\"2\">\n  <Run Id=\"test\" Number=\"1\">\n    <Reads>\n")
	for i, r := range reads {
		index := "N"
		if strings.HasPrefix(r, "I") {
			index, r = "Y", strings.TrimPrefix(r, "I")
		}
		fmt.Fprintf(&b, "      <Read Number=\"%d\" NumCycles=\"%s\" IsIndexedRead=\"%s\" />\n", i+1, r, index)
	}
	b.WriteString("    </Reads>\n  </Run>\n</RunInfo>\n")
	return b.String()
}
