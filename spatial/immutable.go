package spatial

import (
	"iter"
	"math"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
)

const nodeFlagLeaf byte = 0x1

// Bound is a closed rectangular query region, one min/max pair per
// dimension.
type Bound struct {
	Min []float32
	Max []float32
}

// NewBound builds a bound from per-dimension limits.
func NewBound(minCoords, maxCoords []float32) Bound {
	return Bound{Min: minCoords, Max: maxCoords}
}

func (b Bound) numDims() int {
	return len(b.Min)
}

func (b Bound) containsPoint(coords []float32) bool {
	for d := range coords {
		if coords[d] < b.Min[d] || coords[d] > b.Max[d] {
			return false
		}
	}

	return true
}

func (b Bound) overlaps(nodeMin, nodeMax []float32) bool {
	for d := range nodeMin {
		if nodeMax[d] < b.Min[d] || nodeMin[d] > b.Max[d] {
			return false
		}
	}

	return true
}

// ImmutableRTree is a zero-copy view over a serialized R-tree. It holds the
// raw bytes plus the bitmap factory that decodes leaf bitmaps; all node and
// point structure is read on demand.
type ImmutableRTree struct {
	data    []byte
	factory bitmap.Factory
	numDims int
	root    int
}

// FromBytes validates the header of a serialized tree and returns the view.
// The data slice is retained.
func FromBytes(data []byte, factory bitmap.Factory) (*ImmutableRTree, error) {
	if len(data) < rtreeHeaderSize {
		return nil, errs.ErrBufferTooSmall
	}
	if data[0] != rtreeVersion {
		return nil, errs.ErrInvalidVersion
	}

	numDims := int(data[1])
	if numDims < 1 {
		return nil, errs.ErrInvalidVersion
	}

	root := int(endian.GetBigEndianEngine().Uint32(data[2:6]))
	if root != 0 && (root < rtreeHeaderSize || root >= len(data)) {
		return nil, errs.ErrInvalidOffsets
	}

	return &ImmutableRTree{
		data:    data,
		factory: factory,
		numDims: numDims,
		root:    root,
	}, nil
}

// Bytes returns the serialized form the tree was decoded from.
func (t *ImmutableRTree) Bytes() []byte {
	return t.data
}

// NumDims returns the tree dimensionality.
func (t *ImmutableRTree) NumDims() int {
	return t.numDims
}

// IsEmpty reports whether the tree holds no points.
func (t *ImmutableRTree) IsEmpty() bool {
	return t.root == 0
}

// Search yields the bitmap of every indexed point inside bound, in packed
// order. A bound of the wrong dimensionality yields nothing. Structurally
// malformed bytes end the iteration early; the segment loader has already
// verified the payload against its checksum, so this only guards against
// logic errors.
func (t *ImmutableRTree) Search(bound Bound) iter.Seq[bitmap.Bitmap] {
	return func(yield func(bitmap.Bitmap) bool) {
		if t.root == 0 || bound.numDims() != t.numDims {
			return
		}
		t.searchNode(t.root, bound, yield)
	}
}

// searchNode walks the node at offset, descending into children whose
// bounding rectangles overlap the query. Returns false once the consumer
// stops.
func (t *ImmutableRTree) searchNode(offset int, bound Bound, yield func(bitmap.Bitmap) bool) bool {
	mbrLen := 4 * t.numDims
	if offset+2*mbrLen+5 > len(t.data) {
		return false
	}

	nodeMin := t.readCoords(offset)
	nodeMax := t.readCoords(offset + mbrLen)
	if !bound.overlaps(nodeMin, nodeMax) {
		return true
	}

	flags := t.data[offset+2*mbrLen]
	engine := endian.GetBigEndianEngine()
	numChildren := int(engine.Uint32(t.data[offset+2*mbrLen+1 : offset+2*mbrLen+5]))

	childTable := offset + 2*mbrLen + 5
	if childTable+4*numChildren > len(t.data) {
		return false
	}

	for i := 0; i < numChildren; i++ {
		child := int(engine.Uint32(t.data[childTable+4*i : childTable+4*i+4]))
		if flags&nodeFlagLeaf != 0 {
			if !t.visitPoint(child, bound, yield) {
				return false
			}
		} else {
			if !t.searchNode(child, bound, yield) {
				return false
			}
		}
	}

	return true
}

// visitPoint yields the bitmap of the point record at offset when it falls
// inside the bound.
func (t *ImmutableRTree) visitPoint(offset int, bound Bound, yield func(bitmap.Bitmap) bool) bool {
	mbrLen := 4 * t.numDims
	if offset+mbrLen+4 > len(t.data) {
		return false
	}

	coords := t.readCoords(offset)
	if !bound.containsPoint(coords) {
		return true
	}

	engine := endian.GetBigEndianEngine()
	bitmapLen := int(engine.Uint32(t.data[offset+mbrLen : offset+mbrLen+4]))
	start := offset + mbrLen + 4
	if start+bitmapLen > len(t.data) {
		return false
	}

	bm, err := t.factory.Deserialize(t.data[start : start+bitmapLen])
	if err != nil {
		return false
	}

	return yield(bm)
}

func (t *ImmutableRTree) readCoords(offset int) []float32 {
	engine := endian.GetBigEndianEngine()
	coords := make([]float32, t.numDims)
	for d := range coords {
		coords[d] = math.Float32frombits(engine.Uint32(t.data[offset+4*d : offset+4*d+4]))
	}

	return coords
}
