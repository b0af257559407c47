package encoding

import (
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/format"
	"github.com/gcwind2007/druid/internal/pool"
)

// genericIndexedHeaderSize is version + flags + uint32 totalBytes + uint32 count.
const genericIndexedHeaderSize = 1 + 1 + 4 + 4

// ObjectStrategy converts between byte spans and typed elements for a
// GenericIndexed. It is a small capability record rather than an interface:
// the three funcs are all a container ever needs from an element type.
//
// FromBytes receives a sub-slice of the backing buffer and must not retain
// mutable references past its own return unless the produced value is itself
// a view (bitmap deserialization does this; the buffer is immutable).
// CompareBytes defines the element order used for sorted containers.
type ObjectStrategy[T any] struct {
	FromBytes    func(span []byte) (T, error)
	ToBytes      func(value T) ([]byte, error)
	CompareBytes func(a, b []byte) int
}

// GenericIndexedWriter accumulates elements of one type and serializes them
// as a length-prefixed, offset-indexed array.
//
// Serialized layout:
//
//	[u8 version=0x1][u8 flags][u32 totalBytes][u32 count]
//	[u32 endOffsets[count]][payload totalBytes-4*count]
//
// flags bit 0 marks a sorted container; a sorted writer rejects elements
// that are not strictly increasing in the strategy's byte order.
type GenericIndexedWriter[T any] struct {
	strategy ObjectStrategy[T]
	payload  *pool.ByteBuffer
	offsets  []uint32
	sorted   bool
	last     []byte
	hasLast  bool
}

// NewGenericIndexedWriter creates a writer. Pass sorted=true only when
// elements arrive in strictly increasing strategy order; the sorted bit is
// what later authorizes binary search on the reader side.
func NewGenericIndexedWriter[T any](strategy ObjectStrategy[T], sorted bool) *GenericIndexedWriter[T] {
	return &GenericIndexedWriter[T]{
		strategy: strategy,
		payload:  pool.GetColumnBuffer(),
		sorted:   sorted,
	}
}

// Write appends one element.
func (w *GenericIndexedWriter[T]) Write(value T) error {
	data, err := w.strategy.ToBytes(value)
	if err != nil {
		return fmt.Errorf("%w: object strategy rejected element %d: %w", errs.ErrCollaborator, len(w.offsets), err)
	}

	if w.sorted {
		if w.hasLast && w.strategy.CompareBytes(w.last, data) >= 0 {
			return fmt.Errorf("%w: element %d out of order", errs.ErrProgrammer, len(w.offsets))
		}
		w.last = append(w.last[:0], data...)
		w.hasLast = true
	}

	w.payload.MustWrite(data)
	w.offsets = append(w.offsets, uint32(w.payload.Len())) //nolint:gosec

	return nil
}

// WriteSlice appends elements in order.
func (w *GenericIndexedWriter[T]) WriteSlice(values []T) error {
	for _, v := range values {
		if err := w.Write(v); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of elements written.
func (w *GenericIndexedWriter[T]) Len() int {
	return len(w.offsets)
}

// NumBytes returns the exact serialized size, header included.
func (w *GenericIndexedWriter[T]) NumBytes() int64 {
	return int64(genericIndexedHeaderSize + 4*len(w.offsets) + w.payload.Len())
}

// WriteTo serializes the container to wr.
func (w *GenericIndexedWriter[T]) WriteTo(wr io.Writer) (int64, error) {
	engine := endian.GetBigEndianEngine()

	var flags byte
	if w.sorted {
		flags |= format.SortedFlag
	}

	totalBytes := 4*len(w.offsets) + w.payload.Len()

	header := make([]byte, 0, genericIndexedHeaderSize+4*len(w.offsets))
	header = append(header, format.GenericIndexedVersion, flags)
	header = engine.AppendUint32(header, uint32(totalBytes))     //nolint:gosec
	header = engine.AppendUint32(header, uint32(len(w.offsets))) //nolint:gosec
	for _, off := range w.offsets {
		header = engine.AppendUint32(header, off)
	}

	n, err := wr.Write(header)
	written := int64(n)
	if err != nil {
		return written, err
	}

	n, err = wr.Write(w.payload.Bytes())
	written += int64(n)

	return written, err
}

// Finish returns the writer's buffer to the pool. The writer is unusable
// afterwards.
func (w *GenericIndexedWriter[T]) Finish() {
	pool.PutColumnBuffer(w.payload)
	w.payload = nil
}

// GenericIndexed is a zero-copy read-only view over a serialized indexed
// array. Elements are decoded lazily: Get hands the element's byte span to
// the object strategy on every call.
type GenericIndexed[T any] struct {
	strategy ObjectStrategy[T]
	offsets  []byte
	payload  []byte
	count    int
	sorted   bool
}

// ReadGenericIndexed decodes a container header at the start of buf and
// returns the view together with the number of bytes consumed.
func ReadGenericIndexed[T any](buf []byte, strategy ObjectStrategy[T]) (GenericIndexed[T], int, error) {
	if len(buf) < genericIndexedHeaderSize {
		return GenericIndexed[T]{}, 0, errs.ErrBufferTooSmall
	}
	if buf[0] != format.GenericIndexedVersion {
		return GenericIndexed[T]{}, 0, errs.ErrInvalidVersion
	}

	sorted := buf[1]&format.SortedFlag != 0
	engine := endian.GetBigEndianEngine()
	totalBytes := int(engine.Uint32(buf[2:6]))
	count := int(engine.Uint32(buf[6:10]))

	if 4*count > totalBytes {
		return GenericIndexed[T]{}, 0, errs.ErrCountMismatch
	}
	if len(buf)-genericIndexedHeaderSize < totalBytes {
		return GenericIndexed[T]{}, 0, errs.ErrBufferTooSmall
	}

	body := buf[genericIndexedHeaderSize : genericIndexedHeaderSize+totalBytes]
	g := GenericIndexed[T]{
		strategy: strategy,
		offsets:  body[:4*count],
		payload:  body[4*count:],
		count:    count,
		sorted:   sorted,
	}

	prev := 0
	for i := 0; i < count; i++ {
		end := g.endOffset(i)
		if end < prev {
			return GenericIndexed[T]{}, 0, errs.ErrInvalidOffsets
		}
		prev = end
	}
	if count > 0 && prev != len(g.payload) {
		return GenericIndexed[T]{}, 0, errs.ErrCountMismatch
	}

	return g, genericIndexedHeaderSize + totalBytes, nil
}

// endOffset reads the end offset of element i without bounds checking.
func (g GenericIndexed[T]) endOffset(i int) int {
	return int(endian.GetBigEndianEngine().Uint32(g.offsets[4*i : 4*i+4]))
}

// span returns the byte span of element i without decoding it.
func (g GenericIndexed[T]) span(i int) []byte {
	start := 0
	if i > 0 {
		start = g.endOffset(i - 1)
	}

	return g.payload[start:g.endOffset(i)]
}

// Size returns the number of elements.
func (g GenericIndexed[T]) Size() int {
	return g.count
}

// Sorted reports whether the container carries the sorted flag.
func (g GenericIndexed[T]) Sorted() bool {
	return g.sorted
}

// ByteSpan returns the raw byte span of element i without invoking the
// strategy. The span aliases the backing buffer.
func (g GenericIndexed[T]) ByteSpan(i int) ([]byte, error) {
	if i < 0 || i >= g.count {
		return nil, errs.ErrIDOutOfRange
	}

	return g.span(i), nil
}

// Get decodes element i through the object strategy.
func (g GenericIndexed[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= g.count {
		return zero, errs.ErrIDOutOfRange
	}

	value, err := g.strategy.FromBytes(g.span(i))
	if err != nil {
		return zero, fmt.Errorf("%w: object strategy rejected element %d: %w", errs.ErrCollaborator, i, err)
	}

	return value, nil
}

// IndexOf binary-searches for key (in strategy byte form) and returns its
// index. On a miss it returns -(insertionPoint)-1, the classic binary search
// convention: the insertion point is the index of the least element greater
// than key, or Size() when no such element exists.
//
// Calling IndexOf on an unsorted container returns ErrUnsortedLookup.
func (g GenericIndexed[T]) IndexOf(key []byte) (int, error) {
	if !g.sorted {
		return 0, errs.ErrUnsortedLookup
	}

	i := sort.Search(g.count, func(i int) bool {
		return g.strategy.CompareBytes(g.span(i), key) >= 0
	})
	if i < g.count && g.strategy.CompareBytes(g.span(i), key) == 0 {
		return i, nil
	}

	return -(i + 1), nil
}

// All returns a forward iterator over the decoded elements. If an element
// fails to decode the iteration ends early; use Get for per-element errors.
func (g GenericIndexed[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < g.count; i++ {
			value, err := g.strategy.FromBytes(g.span(i))
			if err != nil {
				return
			}
			if !yield(i, value) {
				return
			}
		}
	}
}
