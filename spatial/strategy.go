package spatial

import (
	"bytes"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/encoding"
)

// RTreeStrategy returns the object strategy that persists and restores an
// ImmutableRTree. It carries the bitmap factory because every leaf stores a
// bitmap in the factory's wire form; decoding with a different factory than
// the writer used is a collaborator failure at search time.
func RTreeStrategy(factory bitmap.Factory) encoding.ObjectStrategy[*ImmutableRTree] {
	return encoding.ObjectStrategy[*ImmutableRTree]{
		FromBytes: func(span []byte) (*ImmutableRTree, error) {
			return FromBytes(span, factory)
		},
		ToBytes: func(t *ImmutableRTree) ([]byte, error) {
			return t.Bytes(), nil
		},
		CompareBytes: bytes.Compare,
	}
}
