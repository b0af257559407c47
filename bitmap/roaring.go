package bitmap

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gcwind2007/druid/errs"
)

type roaringBitmap struct {
	rb *roaring.Bitmap
}

func (b *roaringBitmap) Contains(row uint32) bool {
	return b.rb.Contains(row)
}

func (b *roaringBitmap) Cardinality() int {
	return int(b.rb.GetCardinality()) //nolint:gosec
}

func (b *roaringBitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

func (b *roaringBitmap) Rows() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

func (b *roaringBitmap) ToArray() []uint32 {
	return b.rb.ToArray()
}

// RoaringFactory produces compressed roaring bitmaps. Wire form is the
// portable roaring serialization.
type RoaringFactory struct{}

var _ Factory = RoaringFactory{}

func (RoaringFactory) Empty() Bitmap {
	return &roaringBitmap{rb: roaring.New()}
}

func (RoaringFactory) FromRows(rows ...uint32) Bitmap {
	return &roaringBitmap{rb: roaring.BitmapOf(rows...)}
}

func (RoaringFactory) Union(bs ...Bitmap) (Bitmap, error) {
	inner := make([]*roaring.Bitmap, 0, len(bs))
	for _, b := range bs {
		rb, ok := b.(*roaringBitmap)
		if !ok {
			return nil, fmt.Errorf("%w: roaring factory got %T", errs.ErrForeignBitmap, b)
		}
		inner = append(inner, rb.rb)
	}

	return &roaringBitmap{rb: roaring.FastOr(inner...)}, nil
}

func (RoaringFactory) Serialize(b Bitmap) ([]byte, error) {
	rb, ok := b.(*roaringBitmap)
	if !ok {
		return nil, fmt.Errorf("%w: roaring factory got %T", errs.ErrForeignBitmap, b)
	}
	if rb.rb.IsEmpty() {
		return nil, nil
	}

	data, err := rb.rb.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: roaring serialize: %w", errs.ErrCollaborator, err)
	}

	return data, nil
}

func (RoaringFactory) Deserialize(span []byte) (Bitmap, error) {
	rb := roaring.New()
	if len(span) == 0 {
		return &roaringBitmap{rb: rb}, nil
	}

	if _, err := rb.FromBuffer(span); err != nil {
		return nil, fmt.Errorf("%w: roaring deserialize: %w", errs.ErrCollaborator, err)
	}

	return &roaringBitmap{rb: rb}, nil
}
