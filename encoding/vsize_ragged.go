package encoding

import (
	"io"
	"iter"

	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/format"
)

// vsizeRaggedHeaderSize is version + offsetsWidth + valuesWidth + uint32 numRows.
const vsizeRaggedHeaderSize = 1 + 1 + 1 + 4

// VSizeRaggedWriter packs a ragged list of integer rows: each row is a
// possibly empty ordered sequence of values at a fixed byte width, located
// through an offsets table.
//
// Serialized layout:
//
//	[u8 version=0x1][u8 offsetsWidth][u8 valuesWidth][u32 numRows]
//	[offsets (numRows+1)*offsetsWidth][u32 valuesBytes][values]
//
// The offsets are byte positions into the values payload; row r occupies
// [offsets[r], offsets[r+1]). The values width is chosen at construction
// from the declared maximum value; the offsets width is derived from the
// final payload length when the list is sized or serialized.
type VSizeRaggedWriter struct {
	rows        [][]uint32
	valuesWidth int
	totalValues int
}

// NewVSizeRaggedWriter creates a writer whose element width is the minimal
// byte count for maxValue.
func NewVSizeRaggedWriter(maxValue uint32) *VSizeRaggedWriter {
	return &VSizeRaggedWriter{
		valuesWidth: ByteWidth(maxValue),
	}
}

// WriteRow appends one row. The slice is copied; callers may reuse it.
func (w *VSizeRaggedWriter) WriteRow(values []uint32) error {
	for _, v := range values {
		if v > maxEncodable(w.valuesWidth) {
			return errs.ErrValueTooWide
		}
	}

	row := make([]uint32, len(values))
	copy(row, values)
	w.rows = append(w.rows, row)
	w.totalValues += len(values)

	return nil
}

// Len returns the number of rows written.
func (w *VSizeRaggedWriter) Len() int {
	return len(w.rows)
}

func (w *VSizeRaggedWriter) valuesBytes() int {
	return w.totalValues * w.valuesWidth
}

func (w *VSizeRaggedWriter) offsetsWidth() int {
	return ByteWidth(uint32(w.valuesBytes())) //nolint:gosec
}

// NumBytes returns the exact serialized size, header included.
func (w *VSizeRaggedWriter) NumBytes() int64 {
	offsetsLen := (len(w.rows) + 1) * w.offsetsWidth()

	return int64(vsizeRaggedHeaderSize + offsetsLen + 4 + w.valuesBytes())
}

// WriteTo serializes the ragged list to wr.
func (w *VSizeRaggedWriter) WriteTo(wr io.Writer) (int64, error) {
	engine := endian.GetBigEndianEngine()
	offsetsWidth := w.offsetsWidth()

	buf := make([]byte, 0, w.NumBytes())
	buf = append(buf, format.VSizeRaggedVersion, byte(offsetsWidth), byte(w.valuesWidth))
	buf = engine.AppendUint32(buf, uint32(len(w.rows))) //nolint:gosec

	offset := 0
	buf = appendPacked(buf, uint32(offset), offsetsWidth)
	for _, row := range w.rows {
		offset += len(row) * w.valuesWidth
		buf = appendPacked(buf, uint32(offset), offsetsWidth) //nolint:gosec
	}

	buf = engine.AppendUint32(buf, uint32(w.valuesBytes())) //nolint:gosec
	for _, row := range w.rows {
		for _, v := range row {
			buf = appendPacked(buf, v, w.valuesWidth)
		}
	}

	n, err := wr.Write(buf)

	return int64(n), err
}

// appendPacked appends v as width big-endian bytes.
func appendPacked(buf []byte, v uint32, width int) []byte {
	for shift := 8 * (width - 1); shift >= 0; shift -= 8 {
		buf = append(buf, byte(v>>shift))
	}

	return buf
}

// VSizeRagged is a zero-copy read-only view over a packed ragged list.
type VSizeRagged struct {
	offsets      []byte
	values       []byte
	offsetsWidth int
	valuesWidth  int
	numRows      int
}

// ReadVSizeRagged decodes a ragged list header at the start of buf and
// returns the view together with the number of bytes consumed. The offsets
// table is validated in full: it must start at zero, be monotonic
// non-decreasing, end at the values payload length, and every row span must
// be a whole number of elements.
func ReadVSizeRagged(buf []byte) (VSizeRagged, int, error) {
	if len(buf) < vsizeRaggedHeaderSize {
		return VSizeRagged{}, 0, errs.ErrBufferTooSmall
	}
	if buf[0] != format.VSizeRaggedVersion {
		return VSizeRagged{}, 0, errs.ErrInvalidVersion
	}

	offsetsWidth := int(buf[1])
	valuesWidth := int(buf[2])
	if offsetsWidth < 1 || offsetsWidth > format.MaxByteWidth ||
		valuesWidth < 1 || valuesWidth > format.MaxByteWidth {
		return VSizeRagged{}, 0, errs.ErrInvalidWidth
	}

	engine := endian.GetBigEndianEngine()
	numRows := int(engine.Uint32(buf[3:7]))

	offsetsLen := (numRows + 1) * offsetsWidth
	rest := buf[vsizeRaggedHeaderSize:]
	if len(rest) < offsetsLen+4 {
		return VSizeRagged{}, 0, errs.ErrBufferTooSmall
	}

	offsets := rest[:offsetsLen]
	valuesBytes := int(engine.Uint32(rest[offsetsLen : offsetsLen+4]))
	values := rest[offsetsLen+4:]
	if len(values) < valuesBytes {
		return VSizeRagged{}, 0, errs.ErrCountMismatch
	}
	values = values[:valuesBytes]

	v := VSizeRagged{
		offsets:      offsets,
		values:       values,
		offsetsWidth: offsetsWidth,
		valuesWidth:  valuesWidth,
		numRows:      numRows,
	}
	if err := v.validateOffsets(); err != nil {
		return VSizeRagged{}, 0, err
	}

	return v, vsizeRaggedHeaderSize + offsetsLen + 4 + valuesBytes, nil
}

func (v VSizeRagged) validateOffsets() error {
	if v.offsetAt(0) != 0 {
		return errs.ErrInvalidOffsets
	}

	prev := 0
	for r := 1; r <= v.numRows; r++ {
		cur := v.offsetAt(r)
		if cur < prev {
			return errs.ErrInvalidOffsets
		}
		if (cur-prev)%v.valuesWidth != 0 {
			return errs.ErrCountMismatch
		}
		prev = cur
	}
	if prev != len(v.values) {
		return errs.ErrCountMismatch
	}

	return nil
}

// offsetAt reads offsets[r] without bounds checking.
func (v VSizeRagged) offsetAt(r int) int {
	var value uint32
	for _, b := range v.offsets[r*v.offsetsWidth : (r+1)*v.offsetsWidth] {
		value = value<<8 | uint32(b)
	}

	return int(value)
}

// Size returns the number of rows.
func (v VSizeRagged) Size() int {
	return v.numRows
}

// Row returns the packed values of row r as an O(1) zero-copy view.
func (v VSizeRagged) Row(r int) (VSizeInts, error) {
	if r < 0 || r >= v.numRows {
		return VSizeInts{}, errs.ErrRowOutOfRange
	}

	start, end := v.offsetAt(r), v.offsetAt(r+1)

	return newVSizeIntsView(v.values[start:end], v.valuesWidth), nil
}

// All returns an iterator over the rows in order. Each yielded view shares
// the backing buffer.
func (v VSizeRagged) All() iter.Seq2[int, VSizeInts] {
	return func(yield func(int, VSizeInts) bool) {
		for r := 0; r < v.numRows; r++ {
			row, _ := v.Row(r)
			if !yield(r, row) {
				return
			}
		}
	}
}
