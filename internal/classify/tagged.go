package classify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/faults"
	"github.com/vk/lanepipe/internal/tagstore"
)

// ReadNumber is the mate a file belongs to.
type ReadNumber string

const (
	Read1    ReadNumber = "1"
	Read2    ReadNumber = "2"
	ReadNone ReadNumber = "none"
)

// Valid reports whether r is one of 1, 2 or none.
func (r ReadNumber) Valid() bool {
	return r == Read1 || r == Read2 || r == ReadNone
}

// FileType is the kind of result object.
type FileType string

const (
	TypeFASTQ FileType = "fastq"
	TypeBAM   FileType = "bam"
	TypeBAI   FileType = "bai"
)

func (t FileType) valid() bool {
	return t == TypeFASTQ || t == TypeBAM || t == TypeBAI
}

// TaggedFile is a result object with its validated metadata.
type TaggedFile struct {
	ID      string
	Barcode string
	Read    ReadNumber
	Type    FileType
	Lane    int
	Sample  string
}

// Tags renders the file's metadata in tag store form.
func (f TaggedFile) Tags() map[string]string {
	t := map[string]string{
		tagstore.KeyBarcode: f.Barcode,
		tagstore.KeyRead:    string(f.Read),
		tagstore.KeyType:    string(f.Type),
	}
	if f.Lane > 0 {
		t[tagstore.KeyLane] = strconv.Itoa(f.Lane)
	}
	if f.Sample != "" {
		t[tagstore.KeySample] = f.Sample
	}
	return t
}

// FromTags validates the tags of one object. barcode, read and type are
// required; lane and sample are optional.
func FromTags(id string, tags map[string]string) (TaggedFile, error) {
	f := TaggedFile{ID: id}

	barcode, ok := tags[tagstore.KeyBarcode]
	if !ok || barcode == "" {
		return f, &faults.ClassificationError{FileID: id, Tag: tagstore.KeyBarcode, Reason: "is missing"}
	}
	f.Barcode = barcode

	read, ok := tags[tagstore.KeyRead]
	if !ok {
		return f, &faults.ClassificationError{FileID: id, Tag: tagstore.KeyRead, Reason: "is missing"}
	}
	f.Read = ReadNumber(read)
	if !f.Read.Valid() {
		return f, invalidRead(f)
	}

	fileType, ok := tags[tagstore.KeyType]
	if !ok {
		return f, &faults.ClassificationError{FileID: id, Tag: tagstore.KeyType, Reason: "is missing"}
	}
	f.Type = FileType(fileType)
	if !f.Type.valid() {
		return f, &faults.ClassificationError{FileID: id, Tag: tagstore.KeyType, Value: fileType, Reason: "is not one of fastq, bam, bai"}
	}

	if lane, ok := tags[tagstore.KeyLane]; ok && lane != "" {
		n, err := strconv.Atoi(lane)
		if err != nil || n < 1 {
			return f, &faults.ClassificationError{FileID: id, Tag: tagstore.KeyLane, Value: lane, Reason: "is not a lane number"}
		}
		f.Lane = n
	}
	f.Sample = tags[tagstore.KeySample]

	return f, nil
}

func invalidRead(f TaggedFile) error {
	return &faults.ClassificationError{FileID: f.ID, Tag: tagstore.KeyRead, Value: string(f.Read), Reason: "is not one of 1, 2, none"}
}

// Load reads and validates the tags of the given objects, in order.
func Load(ctx context.Context, store tagstore.Store, ids []string) ([]TaggedFile, error) {
	files := make([]TaggedFile, 0, len(ids))
	for _, id := range ids {
		tags, err := fetchTags(ctx, store, id)
		if err != nil {
			return nil, err
		}
		f, err := FromTags(id, tags)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func fetchTags(ctx context.Context, store tagstore.Store, id string) (map[string]string, error) {
	tags, err := store.Tags(ctx, id)
	if err != nil {
		if errors.Is(err, tagstore.ErrNotFound) {
			return nil, &faults.ClassificationError{FileID: id, Reason: "has no metadata"}
		}
		return nil, fmt.Errorf("failed to load tags of %s: %w", id, err)
	}
	return tags, nil
}

// Discover lists the objects under prefix and validates those tagged with
// a wanted type. Objects of another type are left out. An object without a
// type tag cannot be placed and fails the whole discovery.
func Discover(ctx context.Context, store tagstore.Store, prefix string, types ...FileType) ([]TaggedFile, error) {
	logger := ctxlog.FromContext(ctx)

	ids, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}

	want := make(map[FileType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	var files []TaggedFile
	for _, id := range ids {
		tags, err := fetchTags(ctx, store, id)
		if err != nil {
			return nil, err
		}
		fileType := tags[tagstore.KeyType]
		if fileType == "" {
			return nil, &faults.ClassificationError{FileID: id, Tag: tagstore.KeyType, Reason: "is missing"}
		}
		if !want[FileType(fileType)] {
			logger.Debug("Skipping object of another type.", "id", id, "type", fileType)
			continue
		}
		f, err := FromTags(id, tags)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	logger.Debug("Discovered tagged files.", "prefix", prefix, "listed", len(ids), "selected", len(files))
	return files, nil
}
