// Package tagstore provides the key/value metadata attached to result
// objects. Upstream stages write tags once per object; classification reads
// them back to group files by sample and read.
package tagstore

import (
	"context"
	"errors"
)

// Well-known tag keys.
const (
	KeyBarcode = "barcode"
	KeyRead    = "read"
	KeyType    = "type"
	KeyLane    = "lane"
	KeySample  = "sample"
)

// ErrNotFound is returned when an object is unknown to the store.
var ErrNotFound = errors.New("object not found")

// Store reads and writes object tags.
type Store interface {
	// Tags returns a copy of the tags of one object.
	Tags(ctx context.Context, id string) (map[string]string, error)
	// SetTags replaces the tags of one object.
	SetTags(ctx context.Context, id string, tags map[string]string) error
	// List returns the IDs of all objects under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
