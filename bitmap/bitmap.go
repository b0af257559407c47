// Package bitmap defines the compressed-bitmap collaborator contracts of the
// column layer and provides two concrete factories: "roaring"
// (RoaringBitmap) and "legacy" (an uncompressed word-aligned bitset, the
// backward-compatible default).
//
// The column layer never looks inside a bitmap; it only unions, serializes,
// and deserializes them through a Factory. Which factory produced a segment
// is recorded as a small string tag in the segment's metadata, outside the
// column payload itself.
package bitmap

import "iter"

// Bitmap is an immutable set of row ordinals. Implementations are produced
// by exactly one Factory and must only be handed back to that factory.
type Bitmap interface {
	// Contains reports whether row is in the set.
	Contains(row uint32) bool

	// Cardinality returns the number of rows in the set.
	Cardinality() int

	// IsEmpty reports whether the set is empty.
	IsEmpty() bool

	// Rows returns an iterator over the rows in ascending order.
	Rows() iter.Seq[uint32]

	// ToArray materializes the rows in ascending order.
	ToArray() []uint32
}

// Factory creates, combines, and (de)serializes bitmaps of one concrete
// encoding.
type Factory interface {
	// Empty returns the factory's empty bitmap.
	Empty() Bitmap

	// FromRows builds a bitmap containing the given rows.
	FromRows(rows ...uint32) Bitmap

	// Union returns the union of the given bitmaps. Bitmaps produced by a
	// different factory are rejected with an ErrForeignBitmap-kinded error.
	Union(bs ...Bitmap) (Bitmap, error)

	// Serialize returns the wire form of b. The empty bitmap serializes to
	// zero bytes.
	Serialize(b Bitmap) ([]byte, error)

	// Deserialize decodes a wire-form span. A zero-length span decodes to
	// the empty bitmap. The returned bitmap may alias span; the caller
	// guarantees the span stays valid and unmodified.
	Deserialize(span []byte) (Bitmap, error)
}
