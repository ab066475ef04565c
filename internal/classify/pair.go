package classify

import (
	"fmt"

	"github.com/vk/lanepipe/internal/faults"
)

// Pairing is the read layout of one sample group.
type Pairing struct {
	Paired bool
	Read1  []TaggedFile
	Read2  []TaggedFile
}

// Chunk is one positional pair of mates. Read2 is nil for single-end data.
type Chunk struct {
	Index int
	Read1 TaggedFile
	Read2 *TaggedFile
}

// Pair decides how a sample group is addressed. The group is paired-end iff
// both read 1 and read 2 are present and non-empty. Otherwise it is
// single-end and always read-1 shaped: the read 1 files are used, or, when
// there are none, the read 2 files, or else the unnumbered ones.
func Pair(byRead map[ReadNumber][]TaggedFile) Pairing {
	r1, r2 := byRead[Read1], byRead[Read2]
	if len(r1) > 0 && len(r2) > 0 {
		return Pairing{Paired: true, Read1: r1, Read2: r2}
	}
	for _, key := range []ReadNumber{Read1, Read2, ReadNone} {
		if files := byRead[key]; len(files) > 0 {
			return Pairing{Read1: files}
		}
	}
	return Pairing{}
}

// Chunks zips the mates positionally. Paired groups must carry as many read
// 2 files as read 1 files.
func (p Pairing) Chunks() ([]Chunk, error) {
	if p.Paired && len(p.Read1) != len(p.Read2) {
		return nil, &faults.ClassificationError{
			FileID: p.Read1[0].ID,
			Reason: fmt.Sprintf("sample '%s' has %d read 1 files but %d read 2 files", p.Read1[0].Barcode, len(p.Read1), len(p.Read2)),
		}
	}

	chunks := make([]Chunk, len(p.Read1))
	for i := range p.Read1 {
		chunks[i] = Chunk{Index: i, Read1: p.Read1[i]}
		if p.Paired {
			mate := p.Read2[i]
			chunks[i].Read2 = &mate
		}
	}
	return chunks, nil
}
