package tagstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetAndGetTags(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Tags(ctx, "runs/a.fastq.gz")
	require.ErrorIs(t, err, ErrNotFound)

	in := map[string]string{KeyBarcode: "ACGTAC", KeyRead: "1"}
	require.NoError(t, s.SetTags(ctx, "runs/a.fastq.gz", in))

	// Mutating the caller's map must not leak into the store.
	in[KeyRead] = "2"

	got, err := s.Tags(ctx, "runs/a.fastq.gz")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyBarcode: "ACGTAC", KeyRead: "1"}, got)
}

func TestMemory_ListIsSortedAndFiltered(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"out/b.bam", "runs/z.fastq.gz", "runs/a.fastq.gz"} {
		require.NoError(t, s.SetTags(ctx, id, nil))
	}

	ids, err := s.List(ctx, "runs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/a.fastq.gz", "runs/z.fastq.gz"}, ids)
}

func TestMemory_ConcurrentWriters(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("obj-%02d", i)
			assert.NoError(t, s.SetTags(ctx, id, map[string]string{KeyLane: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	ids, err := s.List(ctx, "obj-")
	require.NoError(t, err)
	assert.Len(t, ids, writers)
}

func TestNewMinio_Validation(t *testing.T) {
	_, err := NewMinio(MinioConfig{Bucket: "b"})
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = NewMinio(MinioConfig{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "bucket is required")

	s, err := NewMinio(MinioConfig{Endpoint: "https://s3.example.org", Bucket: "runs", AccessKey: "k", SecretKey: "s", RateLimit: 5, Burst: 2})
	require.NoError(t, err)
	assert.Equal(t, "runs", s.bucket)
	assert.Equal(t, 2, s.limiter.Burst())
}
