package bitmap

import (
	"fmt"
	"iter"

	"github.com/bits-and-blooms/bitset"

	"github.com/gcwind2007/druid/errs"
)

type legacyBitmap struct {
	bs *bitset.BitSet
}

func (b *legacyBitmap) Contains(row uint32) bool {
	return b.bs.Test(uint(row))
}

func (b *legacyBitmap) Cardinality() int {
	return int(b.bs.Count()) //nolint:gosec
}

func (b *legacyBitmap) IsEmpty() bool {
	return b.bs.None()
}

func (b *legacyBitmap) Rows() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for i, ok := b.bs.NextSet(0); ok; i, ok = b.bs.NextSet(i + 1) {
			if !yield(uint32(i)) { //nolint:gosec
				return
			}
		}
	}
}

func (b *legacyBitmap) ToArray() []uint32 {
	out := make([]uint32, 0, b.Cardinality())
	for row := range b.Rows() {
		out = append(out, row)
	}

	return out
}

// LegacyFactory produces uncompressed word-aligned bitsets. It is the
// default encoding readers fall back to when a segment's metadata does not
// name a bitmap serde factory.
type LegacyFactory struct{}

var _ Factory = LegacyFactory{}

func (LegacyFactory) Empty() Bitmap {
	return &legacyBitmap{bs: bitset.New(0)}
}

func (LegacyFactory) FromRows(rows ...uint32) Bitmap {
	bs := bitset.New(0)
	for _, row := range rows {
		bs.Set(uint(row))
	}

	return &legacyBitmap{bs: bs}
}

func (LegacyFactory) Union(bs ...Bitmap) (Bitmap, error) {
	out := bitset.New(0)
	for _, b := range bs {
		lb, ok := b.(*legacyBitmap)
		if !ok {
			return nil, fmt.Errorf("%w: legacy factory got %T", errs.ErrForeignBitmap, b)
		}
		out.InPlaceUnion(lb.bs)
	}

	return &legacyBitmap{bs: out}, nil
}

func (LegacyFactory) Serialize(b Bitmap) ([]byte, error) {
	lb, ok := b.(*legacyBitmap)
	if !ok {
		return nil, fmt.Errorf("%w: legacy factory got %T", errs.ErrForeignBitmap, b)
	}
	if lb.bs.None() {
		return nil, nil
	}

	data, err := lb.bs.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: bitset serialize: %w", errs.ErrCollaborator, err)
	}

	return data, nil
}

func (LegacyFactory) Deserialize(span []byte) (Bitmap, error) {
	bs := bitset.New(0)
	if len(span) == 0 {
		return &legacyBitmap{bs: bs}, nil
	}

	if err := bs.UnmarshalBinary(span); err != nil {
		return nil, fmt.Errorf("%w: bitset deserialize: %w", errs.ErrCollaborator, err)
	}

	return &legacyBitmap{bs: bs}, nil
}
