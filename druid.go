// Package druid provides the on-disk serialization format and in-memory
// accessors for dictionary-encoded string columns in a columnar timeseries
// store.
//
// A column stores a potentially multi-valued string attribute of a row set,
// compressed by replacing each string with its position in a sorted
// per-column dictionary and packing the resulting ids at the minimal byte
// width. Each column also carries a per-value inverted bitmap index and,
// optionally, an R-tree over geographic points, so filters can be pushed
// down to row-ordinal sets without materializing rows.
//
// # Basic Usage
//
// Encoding a single-valued column:
//
//	serde, _ := druid.BuildSingleValuedColumn([]string{"a", "c", "b", "a"}, bitmap.RoaringTag)
//	var buf bytes.Buffer
//	serde.WriteTo(&buf)
//
// Decoding and querying:
//
//	col, _ := druid.DecodeColumn(buf.Bytes(),
//	    column.WithBitmapSerdeFactory(bitmap.RoaringTag))
//	dict, _ := col.DictionaryEncoded()
//	rows, _ := dict.BitmapFor("a") // bitmap of row ordinals holding "a"
//
// Segment files bundle several columns behind a memory mapping:
//
//	w, _ := segment.Create("part-0000.seg")
//	w.WriteColumn("page", serde)
//	w.Close()
//
//	seg, _ := segment.Open("part-0000.seg")
//	defer seg.Close()
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the column
// package. For fine-grained control over component writers, object
// strategies, and reader options, use the column, encoding, bitmap, and
// spatial packages directly.
package druid

import (
	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/column"
)

// BuildSingleValuedColumn assembles a serializable column from one string
// value per row, deriving the sorted dictionary, packed ids, and bitmap
// index. factoryTag selects the bitmap encoding; the empty tag selects
// legacy.
func BuildSingleValuedColumn(values []string, factoryTag string, opts ...column.WriteOption) (*column.Serde, error) {
	sf, err := bitmap.Lookup(factoryTag)
	if err != nil {
		return nil, err
	}

	return column.BuildSingleValued(values, sf, opts...)
}

// BuildMultiValuedColumn assembles a serializable column from an ordered,
// possibly empty list of string values per row.
func BuildMultiValuedColumn(rows [][]string, factoryTag string, opts ...column.WriteOption) (*column.Serde, error) {
	sf, err := bitmap.Lookup(factoryTag)
	if err != nil {
		return nil, err
	}

	return column.BuildMultiValued(rows, sf, opts...)
}

// DecodeColumn decodes a serialized column from buf and returns the built
// column handle. The handle's accessors are views over buf, which must stay
// valid and unmodified while the column is in use.
func DecodeColumn(buf []byte, opts ...column.ReaderOption) (*column.Column, error) {
	builder := column.NewColumnBuilder()
	if err := column.Decode(buf, builder, opts...); err != nil {
		return nil, err
	}

	return builder.Build(), nil
}
