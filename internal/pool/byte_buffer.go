package pool

import (
	"io"
	"sync"
)

const (
	// ColumnBufferDefaultSize is the default capacity of a ByteBuffer
	// obtained from the pool.
	ColumnBufferDefaultSize = 1024 * 16 // 16KiB
	// ColumnBufferMaxThreshold is the largest buffer the pool retains;
	// bigger buffers are dropped on Put to avoid memory bloat.
	ColumnBufferMaxThreshold = 1024 * 128 // 128KiB
)

// ByteBuffer is an append-oriented byte buffer used by the column writers.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified initial capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Reset resets the buffer to be empty, retaining the allocated memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// MustWrite appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating. Small buffers grow by the pool default size; larger buffers
// grow by a quarter of their capacity.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := ColumnBufferDefaultSize
	if cap(bb.B) > 4*ColumnBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
// It implements io.Writer and never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

var columnBufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(ColumnBufferDefaultSize)
	},
}

// GetColumnBuffer retrieves a reset ByteBuffer from the pool.
func GetColumnBuffer() *ByteBuffer {
	bb, _ := columnBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutColumnBuffer returns a ByteBuffer to the pool for reuse. Oversized
// buffers are dropped instead of retained.
func PutColumnBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > ColumnBufferMaxThreshold {
		return
	}

	columnBufferPool.Put(bb)
}
