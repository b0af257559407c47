// Package spatial provides the immutable R-tree that backs a column's
// optional spatial index. The build side (RTree) accumulates point → row
// mappings during segment build and bulk-loads a packed tree; the read side
// (ImmutableRTree) is a zero-copy view over the serialized bytes that
// answers rectangular range queries with the bitmaps of matching points.
package spatial

import (
	"fmt"
	"math"
	"slices"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
)

const (
	rtreeVersion byte = 0x0

	// rtreeHeaderSize is version + numDims + uint32 rootOffset.
	rtreeHeaderSize = 1 + 1 + 4

	// leafCapacity bounds points per leaf and children per node in the
	// packed bulk load.
	leafCapacity = 50
)

// Point is a coordinate vector, typically two-dimensional.
type Point []float32

// RTree accumulates (point, row) pairs during segment build. Rows inserted
// at the same point share one leaf entry and one bitmap.
type RTree struct {
	numDims int
	factory bitmap.Factory
	entries []*rtreeEntry
	index   map[string]int
}

type rtreeEntry struct {
	coords []float32
	rows   []uint32
}

// NewRTree creates an empty build-side tree of the given dimensionality.
// Leaf bitmaps are produced by the given factory, which must be the same
// factory the enclosing column uses for its bitmap index.
func NewRTree(numDims int, factory bitmap.Factory) *RTree {
	return &RTree{
		numDims: numDims,
		factory: factory,
		index:   make(map[string]int),
	}
}

// NumDims returns the tree dimensionality.
func (t *RTree) NumDims() int {
	return t.numDims
}

// NumPoints returns the number of distinct points inserted.
func (t *RTree) NumPoints() int {
	return len(t.entries)
}

// Insert records that row lies at point.
func (t *RTree) Insert(point Point, row uint32) error {
	if len(point) != t.numDims {
		return errs.ErrDimensionMismatch
	}

	key := pointKey(point)
	if i, ok := t.index[key]; ok {
		t.entries[i].rows = append(t.entries[i].rows, row)
		return nil
	}

	coords := make([]float32, len(point))
	copy(coords, point)
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, &rtreeEntry{coords: coords, rows: []uint32{row}})

	return nil
}

func pointKey(p Point) string {
	engine := endian.GetBigEndianEngine()
	buf := make([]byte, 0, 4*len(p))
	for _, c := range p {
		buf = engine.AppendUint32(buf, math.Float32bits(c))
	}

	return string(buf)
}

// ToBytes serializes the tree as a packed bulk load: entries are sorted by
// coordinates, grouped into leaves, and leaves grouped into nodes level by
// level until a single root remains.
//
// Layout (offsets are byte positions from the start of the blob):
//
//	[u8 version=0x0][u8 numDims][u32 rootOffset]
//	Point := [f32 coords[numDims]][u32 bitmapBytes][bitmap]
//	Node  := [f32 min[numDims]][f32 max[numDims]][u8 flags bit0=leaf]
//	         [u32 numChildren][u32 childOffsets[numChildren]]
//
// rootOffset is zero for an empty tree.
func (t *RTree) ToBytes() ([]byte, error) {
	engine := endian.GetBigEndianEngine()

	buf := make([]byte, rtreeHeaderSize, rtreeHeaderSize+64*len(t.entries))
	buf[0] = rtreeVersion
	buf[1] = byte(t.numDims)

	if len(t.entries) == 0 {
		return buf, nil
	}

	ordered := make([]*rtreeEntry, len(t.entries))
	copy(ordered, t.entries)
	sortEntries(ordered)

	// Emit point records first, remembering their offsets.
	pointOffsets := make([]uint32, len(ordered))
	for i, e := range ordered {
		pointOffsets[i] = uint32(len(buf)) //nolint:gosec
		for _, c := range e.coords {
			buf = engine.AppendUint32(buf, math.Float32bits(c))
		}

		bm := t.factory.FromRows(e.rows...)
		data, err := t.factory.Serialize(bm)
		if err != nil {
			return nil, fmt.Errorf("leaf bitmap: %w", err)
		}
		buf = engine.AppendUint32(buf, uint32(len(data))) //nolint:gosec
		buf = append(buf, data...)
	}

	// Group points into leaves, then group level by level up to the root.
	level := make([]nodeRef, len(ordered))
	for i, e := range ordered {
		level[i] = nodeRef{min: e.coords, max: e.coords, offset: pointOffsets[i]}
	}

	leaf := true
	for leaf || len(level) > 1 {
		var next []nodeRef
		for start := 0; start < len(level); start += leafCapacity {
			end := min(start+leafCapacity, len(level))
			group := level[start:end]

			nodeMin, nodeMax := t.groupBounds(group)
			offset := uint32(len(buf)) //nolint:gosec

			for _, c := range nodeMin {
				buf = engine.AppendUint32(buf, math.Float32bits(c))
			}
			for _, c := range nodeMax {
				buf = engine.AppendUint32(buf, math.Float32bits(c))
			}
			var flags byte
			if leaf {
				flags |= nodeFlagLeaf
			}
			buf = append(buf, flags)
			buf = engine.AppendUint32(buf, uint32(len(group))) //nolint:gosec
			for _, child := range group {
				buf = engine.AppendUint32(buf, child.offset)
			}

			next = append(next, nodeRef{min: nodeMin, max: nodeMax, offset: offset})
		}
		level = next
		leaf = false
	}

	engine.PutUint32(buf[2:6], level[0].offset)

	return buf, nil
}

type nodeRef struct {
	min, max []float32
	offset   uint32
}

func (t *RTree) groupBounds(group []nodeRef) ([]float32, []float32) {
	nodeMin := make([]float32, t.numDims)
	nodeMax := make([]float32, t.numDims)
	copy(nodeMin, group[0].min)
	copy(nodeMax, group[0].max)
	for _, g := range group[1:] {
		for d := 0; d < t.numDims; d++ {
			nodeMin[d] = min(nodeMin[d], g.min[d])
			nodeMax[d] = max(nodeMax[d], g.max[d])
		}
	}

	return nodeMin, nodeMax
}

// sortEntries orders entries lexicographically by coordinates so nearby
// points land in the same leaf.
func sortEntries(entries []*rtreeEntry) {
	slices.SortFunc(entries, func(a, b *rtreeEntry) int {
		for d := range a.coords {
			if a.coords[d] != b.coords[d] {
				if a.coords[d] < b.coords[d] {
					return -1
				}
				return 1
			}
		}
		return 0
	})
}
