// Package segment stitches serialized columns into an on-disk segment file
// and serves them back as shared immutable views over a read-only memory
// mapping.
//
// Segment layout:
//
//	[column payloads ...][footer JSON][u32 footerLen][u32 magic]
//
// The footer is a directory of (name, offset, length, checksum, descriptor)
// entries. Checksums are xxHash64 of each column payload, verified at open
// before any bytes reach the column codec. The footer lives outside the
// column payloads, so the column format itself is unchanged by segment
// packaging.
//
// Writes are single-producer: one Writer serializes columns into the file
// and seals it with Close. Reads are shared: a Segment is immutable after
// Open and its columns may be used concurrently. Closing the segment
// invalidates every column it handed out, then unmaps the file.
package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/gcwind2007/druid/column"
	"github.com/gcwind2007/druid/endian"
	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/internal/hash"
	"github.com/gcwind2007/druid/internal/pool"
)

const (
	segmentMagic   uint32 = 0xDA7A5E60
	footerVersion         = 1

	// trailerSize is u32 footerLen + u32 magic.
	trailerSize = 8
)

type footer struct {
	Version int           `json:"version"`
	Columns []columnEntry `json:"columns"`
}

type columnEntry struct {
	Name       string            `json:"name"`
	Offset     int64             `json:"offset"`
	Length     int64             `json:"length"`
	Checksum   string            `json:"checksum"`
	Descriptor column.Descriptor `json:"descriptor"`
}

// Writer builds a segment file column by column.
type Writer struct {
	f       *os.File
	offset  int64
	entries []columnEntry
	sealed  bool
}

// Create opens a new segment file for writing, truncating any existing file
// at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create segment: %w", err)
	}

	return &Writer{f: f}, nil
}

// WriteColumn serializes one column under the given name. Names must be
// unique within a segment.
func (w *Writer) WriteColumn(name string, serde *column.Serde) error {
	if w.sealed {
		return fmt.Errorf("%w: segment writer already sealed", errs.ErrProgrammer)
	}
	for _, e := range w.entries {
		if e.Name == name {
			return fmt.Errorf("%w: duplicate column %q", errs.ErrProgrammer, name)
		}
	}

	numBytes, err := serde.NumBytes()
	if err != nil {
		return err
	}

	buf := pool.GetColumnBuffer()
	defer pool.PutColumnBuffer(buf)

	written, err := serde.WriteTo(buf)
	if err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}
	if written != numBytes {
		return fmt.Errorf("%w: column %q reported %d bytes but wrote %d", errs.ErrProgrammer, name, numBytes, written)
	}

	if _, err := w.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("column %q: %w", name, err)
	}

	w.entries = append(w.entries, columnEntry{
		Name:       name,
		Offset:     w.offset,
		Length:     written,
		Checksum:   hash.ChecksumHex(buf.Bytes()),
		Descriptor: serde.Descriptor(),
	})
	w.offset += written

	return nil
}

// Close writes the footer and trailer and seals the file. An aborted write
// (process death before Close) leaves a file without a valid trailer, which
// Open rejects; the builder discards such partial segments.
func (w *Writer) Close() error {
	if w.sealed {
		return nil
	}
	w.sealed = true

	data, err := json.Marshal(footer{Version: footerVersion, Columns: w.entries})
	if err != nil {
		return fmt.Errorf("segment footer: %w", err)
	}

	engine := endian.GetBigEndianEngine()
	trailer := engine.AppendUint32(nil, uint32(len(data))) //nolint:gosec
	trailer = engine.AppendUint32(trailer, segmentMagic)

	if _, err := w.f.Write(data); err != nil {
		return fmt.Errorf("segment footer: %w", err)
	}
	if _, err := w.f.Write(trailer); err != nil {
		return fmt.Errorf("segment trailer: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("segment sync: %w", err)
	}

	return w.f.Close()
}

// Segment is a loaded, memory-mapped segment. It owns the mapping; columns
// hold borrows of it and are invalidated by Close.
type Segment struct {
	f       *os.File
	data    mmap.MMap
	columns map[string]*column.Column
	names   []string
	closed  atomic.Bool
}

// Open memory-maps a segment file, verifies every column checksum, and
// decodes each column. Reader options apply to every column; each column's
// bitmap encoding comes from its own descriptor, defaulting to legacy when
// the descriptor names none.
func Open(path string, opts ...column.ReaderOption) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open segment: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map segment: %w", err)
	}

	s := &Segment{f: f, data: data, columns: make(map[string]*column.Column)}
	if err := s.load(opts); err != nil {
		s.unmap()
		return nil, err
	}

	return s, nil
}

func (s *Segment) load(opts []column.ReaderOption) error {
	if len(s.data) < trailerSize {
		return fmt.Errorf("%w: segment shorter than trailer", errs.ErrCorruptFormat)
	}

	engine := endian.GetBigEndianEngine()
	trailer := s.data[len(s.data)-trailerSize:]
	if engine.Uint32(trailer[4:8]) != segmentMagic {
		return fmt.Errorf("%w: bad segment magic", errs.ErrCorruptFormat)
	}

	footerLen := int(engine.Uint32(trailer[0:4]))
	footerStart := len(s.data) - trailerSize - footerLen
	if footerStart < 0 {
		return fmt.Errorf("%w: footer length exceeds file", errs.ErrCorruptFormat)
	}

	var ft footer
	if err := json.Unmarshal(s.data[footerStart:len(s.data)-trailerSize], &ft); err != nil {
		return fmt.Errorf("%w: segment footer: %w", errs.ErrCorruptFormat, err)
	}

	for _, entry := range ft.Columns {
		end := entry.Offset + entry.Length
		if entry.Offset < 0 || end > int64(footerStart) {
			return fmt.Errorf("%w: column %q out of bounds", errs.ErrCorruptFormat, entry.Name)
		}

		payload := s.data[entry.Offset:end]
		if !hash.Verify(payload, entry.Checksum) {
			return fmt.Errorf("%w: column %q checksum mismatch", errs.ErrCorruptFormat, entry.Name)
		}

		colOpts := slices.Clone(opts)
		colOpts = append(colOpts, column.WithBitmapSerdeFactory(entry.Descriptor.BitmapSerdeFactory))

		builder := column.NewColumnBuilder()
		if err := column.Decode(payload, builder, colOpts...); err != nil {
			return fmt.Errorf("column %q: %w", entry.Name, err)
		}

		s.columns[entry.Name] = builder.Build()
		s.names = append(s.names, entry.Name)
	}

	return nil
}

// Column returns the named column.
func (s *Segment) Column(name string) (*column.Column, bool) {
	col, ok := s.columns[name]
	return col, ok
}

// ColumnNames returns the column names in file order.
func (s *Segment) ColumnNames() []string {
	return slices.Clone(s.names)
}

// Close invalidates every column, unmaps the file, and closes it. It is
// idempotent; columns accessed after Close fail with ErrColumnClosed
// instead of touching unmapped memory.
func (s *Segment) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	for _, col := range s.columns {
		col.Close()
	}

	return s.unmap()
}

func (s *Segment) unmap() error {
	err := s.data.Unmap()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}

	return err
}
