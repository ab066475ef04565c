// Package fastqstats computes read level statistics of FASTQ files.
package fastqstats

import (
	"context"
	"fmt"

	"github.com/shenwei356/bio/seqio/fastx"
	"golang.org/x/sync/errgroup"
)

const (
	bufSize   = 4
	chunkSize = 1000
	// phredOffset is the Sanger/Illumina 1.8+ quality encoding.
	phredOffset = 33
)

// Stats summarises a set of reads.
type Stats struct {
	Reads      int64 `json:"reads"`
	Bases      int64 `json:"bases"`
	GCBases    int64 `json:"gcBases"`
	QualitySum int64 `json:"qualitySum"`
	MinLength  int   `json:"minLength"`
	MaxLength  int   `json:"maxLength"`
}

// MeanQuality is the mean Phred score over all bases.
func (s Stats) MeanQuality() float64 {
	if s.Bases == 0 {
		return 0
	}
	return float64(s.QualitySum) / float64(s.Bases)
}

// GCPercent is the share of G and C bases.
func (s Stats) GCPercent() float64 {
	if s.Bases == 0 {
		return 0
	}
	return 100 * float64(s.GCBases) / float64(s.Bases)
}

// Merge adds o into s.
func (s *Stats) Merge(o Stats) {
	if o.Reads == 0 {
		return
	}
	if s.Reads == 0 || o.MinLength < s.MinLength {
		s.MinLength = o.MinLength
	}
	if o.MaxLength > s.MaxLength {
		s.MaxLength = o.MaxLength
	}
	s.Reads += o.Reads
	s.Bases += o.Bases
	s.GCBases += o.GCBases
	s.QualitySum += o.QualitySum
}

func (s *Stats) add(seq, qual []byte) {
	n := len(seq)
	if s.Reads == 0 || n < s.MinLength {
		s.MinLength = n
	}
	if n > s.MaxLength {
		s.MaxLength = n
	}
	s.Reads++
	s.Bases += int64(n)
	for _, b := range seq {
		switch b {
		case 'G', 'C', 'g', 'c':
			s.GCBases++
		}
	}
	for _, q := range qual {
		s.QualitySum += int64(q) - phredOffset
	}
}

// File reads one FASTQ file, plain or compressed.
func File(ctx context.Context, path string) (Stats, error) {
	fq, err := fastx.NewDefaultReader(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open fastq '%s': %w", path, err)
	}
	defer fq.Close()

	var s Stats
	chunks := fq.ChunkChan(bufSize, chunkSize)
	for chunk := range chunks {
		if chunk.Err != nil {
			return Stats{}, fmt.Errorf("failed to read fastq '%s': %w", path, chunk.Err)
		}
		if err := ctx.Err(); err != nil {
			go func() {
				for range chunks {
				}
			}()
			return Stats{}, err
		}
		for _, record := range chunk.Data {
			s.add(record.Seq.Seq, record.Seq.Qual)
		}
	}
	return s, nil
}

// Files reads files in order and merges their statistics.
func Files(ctx context.Context, paths []string) (Stats, error) {
	var total Stats
	for _, p := range paths {
		s, err := File(ctx, p)
		if err != nil {
			return Stats{}, err
		}
		total.Merge(s)
	}
	return total, nil
}

// Summary holds the statistics of one sample. Read2 is nil for single-end
// samples.
type Summary struct {
	Read1 Stats  `json:"read1"`
	Read2 *Stats `json:"read2,omitempty"`
}

// Sample reads both mates concurrently.
func Sample(ctx context.Context, read1, read2 []string) (Summary, error) {
	g, ctx := errgroup.WithContext(ctx)

	var sum Summary
	g.Go(func() error {
		s, err := Files(ctx, read1)
		sum.Read1 = s
		return err
	})
	var r2 Stats
	if len(read2) > 0 {
		g.Go(func() error {
			s, err := Files(ctx, read2)
			r2 = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if len(read2) > 0 {
		sum.Read2 = &r2
	}
	return sum, nil
}
