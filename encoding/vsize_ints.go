package encoding

import (
	"io"
	"iter"

	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/format"
	"github.com/gcwind2007/druid/internal/pool"
)

// vsizeIntsHeaderSize is version + width + uint32 count.
const vsizeIntsHeaderSize = 1 + 1 + 4

// ByteWidth returns the minimal number of bytes (1 to 4) needed to encode
// maxValue.
func ByteWidth(maxValue uint32) int {
	switch {
	case maxValue < 1<<8:
		return 1
	case maxValue < 1<<16:
		return 2
	case maxValue < 1<<24:
		return 3
	default:
		return format.MaxByteWidth
	}
}

// maxEncodable returns the largest value a width-byte packed int can hold.
func maxEncodable(width int) uint32 {
	if width >= format.MaxByteWidth {
		return 1<<32 - 1
	}

	return 1<<(8*width) - 1
}

// VSizeIntsWriter packs unsigned integers at a fixed byte width chosen from
// the maximum value declared at construction.
//
// Serialized layout:
//
//	[u8 version=0x0][u8 width][u32 count][payload count*width]
type VSizeIntsWriter struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
	width  int
	count  int
}

// NewVSizeIntsWriter creates a writer whose element width is the minimal
// byte count for maxValue.
func NewVSizeIntsWriter(maxValue uint32) *VSizeIntsWriter {
	return &VSizeIntsWriter{
		buf:    pool.GetColumnBuffer(),
		engine: endian.GetBigEndianEngine(),
		width:  ByteWidth(maxValue),
	}
}

// Write appends a single value. Values wider than the declared maximum are
// rejected; silently truncating them would corrupt every row after this one.
func (w *VSizeIntsWriter) Write(v uint32) error {
	if v > maxEncodable(w.width) {
		return errs.ErrValueTooWide
	}

	w.buf.Grow(w.width)
	for shift := 8 * (w.width - 1); shift >= 0; shift -= 8 {
		w.buf.MustWrite([]byte{byte(v >> shift)})
	}
	w.count++

	return nil
}

// WriteSlice appends values in order.
func (w *VSizeIntsWriter) WriteSlice(values []uint32) error {
	w.buf.Grow(len(values) * w.width)
	for _, v := range values {
		if err := w.Write(v); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of values written.
func (w *VSizeIntsWriter) Len() int {
	return w.count
}

// Width returns the chosen element width in bytes.
func (w *VSizeIntsWriter) Width() int {
	return w.width
}

// NumBytes returns the exact serialized size, header included.
func (w *VSizeIntsWriter) NumBytes() int64 {
	return int64(vsizeIntsHeaderSize + w.buf.Len())
}

// WriteTo serializes the packed array to wr.
func (w *VSizeIntsWriter) WriteTo(wr io.Writer) (int64, error) {
	header := make([]byte, 2, vsizeIntsHeaderSize)
	header[0] = format.VSizeIntsVersion
	header[1] = byte(w.width)
	header = w.engine.AppendUint32(header, uint32(w.count)) //nolint:gosec

	n, err := wr.Write(header)
	written := int64(n)
	if err != nil {
		return written, err
	}

	n, err = wr.Write(w.buf.Bytes())
	written += int64(n)

	return written, err
}

// Finish returns the writer's buffer to the pool. The writer is unusable
// afterwards.
func (w *VSizeIntsWriter) Finish() {
	pool.PutColumnBuffer(w.buf)
	w.buf = nil
}

// VSizeInts is a zero-copy read-only view over a packed integer array.
type VSizeInts struct {
	payload []byte
	width   int
	count   int
}

// ReadVSizeInts decodes a packed array header at the start of buf and
// returns the view together with the number of bytes consumed.
func ReadVSizeInts(buf []byte) (VSizeInts, int, error) {
	if len(buf) < vsizeIntsHeaderSize {
		return VSizeInts{}, 0, errs.ErrBufferTooSmall
	}
	if buf[0] != format.VSizeIntsVersion {
		return VSizeInts{}, 0, errs.ErrInvalidVersion
	}

	width := int(buf[1])
	if width < 1 || width > format.MaxByteWidth {
		return VSizeInts{}, 0, errs.ErrInvalidWidth
	}

	engine := endian.GetBigEndianEngine()
	count := int(engine.Uint32(buf[2:6]))

	payloadLen := count * width
	if len(buf)-vsizeIntsHeaderSize < payloadLen {
		return VSizeInts{}, 0, errs.ErrCountMismatch
	}

	v := VSizeInts{
		payload: buf[vsizeIntsHeaderSize : vsizeIntsHeaderSize+payloadLen],
		width:   width,
		count:   count,
	}

	return v, vsizeIntsHeaderSize + payloadLen, nil
}

// newVSizeIntsView wraps a raw payload slice that carries no header, as
// stored inside a VSizeRagged row. The caller guarantees len(payload) is a
// multiple of width.
func newVSizeIntsView(payload []byte, width int) VSizeInts {
	return VSizeInts{
		payload: payload,
		width:   width,
		count:   len(payload) / width,
	}
}

// Size returns the number of packed values.
func (v VSizeInts) Size() int {
	return v.count
}

// Width returns the element width in bytes.
func (v VSizeInts) Width() int {
	return v.width
}

// Get reads the value at index i.
func (v VSizeInts) Get(i int) (uint32, error) {
	if i < 0 || i >= v.count {
		return 0, errs.ErrRowOutOfRange
	}

	return v.at(i), nil
}

// at reads value i without bounds checking.
func (v VSizeInts) at(i int) uint32 {
	var value uint32
	for _, b := range v.payload[i*v.width : (i+1)*v.width] {
		value = value<<8 | uint32(b)
	}

	return value
}

// All returns an iterator over the packed values in index order.
func (v VSizeInts) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for i := 0; i < v.count; i++ {
			if !yield(v.at(i)) {
				return
			}
		}
	}
}

// ToSlice materializes the packed values into a fresh slice.
func (v VSizeInts) ToSlice() []uint32 {
	out := make([]uint32, v.count)
	for i := range out {
		out[i] = v.at(i)
	}

	return out
}
