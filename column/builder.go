package column

import (
	"sync"
	"sync/atomic"

	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/format"
	"github.com/gcwind2007/druid/spatial"
)

// Supplier is a deferred accessor factory. The codec registers suppliers on
// the ColumnBuilder at decode time; the built Column memoizes each one on
// first use.
type Supplier[T any] func() (T, error)

// ColumnBuilder collects the type, multi-value flag, and accessor suppliers
// of one column while the codec peels components off the buffer. The
// surrounding segment loader calls Build once decoding succeeds.
type ColumnBuilder struct {
	valueType         format.ValueType
	hasMultipleValues bool
	dictSupplier      Supplier[*DictionaryColumn]
	bitmapSupplier    Supplier[*BitmapIndex]
	spatialSupplier   Supplier[*spatial.ImmutableRTree]
}

// NewColumnBuilder creates an empty builder.
func NewColumnBuilder() *ColumnBuilder {
	return &ColumnBuilder{}
}

// SetValueType records the column's logical type.
func (b *ColumnBuilder) SetValueType(t format.ValueType) *ColumnBuilder {
	b.valueType = t
	return b
}

// SetHasMultipleValues records whether rows hold ordered id lists.
func (b *ColumnBuilder) SetHasMultipleValues(multi bool) *ColumnBuilder {
	b.hasMultipleValues = multi
	return b
}

// SetDictionaryEncodedColumn registers the composite accessor supplier.
func (b *ColumnBuilder) SetDictionaryEncodedColumn(s Supplier[*DictionaryColumn]) *ColumnBuilder {
	b.dictSupplier = s
	return b
}

// SetBitmapIndex registers the bitmap index supplier.
func (b *ColumnBuilder) SetBitmapIndex(s Supplier[*BitmapIndex]) *ColumnBuilder {
	b.bitmapSupplier = s
	return b
}

// SetSpatialIndex registers the spatial index supplier. Columns without a
// spatial index never call this.
func (b *ColumnBuilder) SetSpatialIndex(s Supplier[*spatial.ImmutableRTree]) *ColumnBuilder {
	b.spatialSupplier = s
	return b
}

// Build produces the column handle. Suppliers are wrapped so each runs at
// most once; their results are shared by all readers.
func (b *ColumnBuilder) Build() *Column {
	col := &Column{
		valueType:         b.valueType,
		hasMultipleValues: b.hasMultipleValues,
	}
	if b.dictSupplier != nil {
		col.dict = sync.OnceValues(b.dictSupplier)
	}
	if b.bitmapSupplier != nil {
		col.bitmapIdx = sync.OnceValues(b.bitmapSupplier)
	}
	if b.spatialSupplier != nil {
		col.spatial = sync.OnceValues(b.spatialSupplier)
	}

	return col
}

// Column is the handle the segment loader hands to the query layer. It owns
// no bytes: every accessor is a view over the segment's buffer, and closing
// the segment invalidates the handle.
type Column struct {
	valueType         format.ValueType
	hasMultipleValues bool
	dict              func() (*DictionaryColumn, error)
	bitmapIdx         func() (*BitmapIndex, error)
	spatial           func() (*spatial.ImmutableRTree, error)
	closed            atomic.Bool
}

// ValueType returns the column's logical type.
func (c *Column) ValueType() format.ValueType {
	return c.valueType
}

// HasMultipleValues reports whether rows hold ordered id lists.
func (c *Column) HasMultipleValues() bool {
	return c.hasMultipleValues
}

// HasSpatialIndex reports whether a spatial index was present in the
// serialized column.
func (c *Column) HasSpatialIndex() bool {
	return c.spatial != nil
}

// DictionaryEncoded returns the composite accessor.
func (c *Column) DictionaryEncoded() (*DictionaryColumn, error) {
	if err := c.check(c.dict == nil); err != nil {
		return nil, err
	}

	return c.dict()
}

// BitmapIndex returns the bitmap index accessor.
func (c *Column) BitmapIndex() (*BitmapIndex, error) {
	if err := c.check(c.bitmapIdx == nil); err != nil {
		return nil, err
	}

	return c.bitmapIdx()
}

// SpatialIndex returns the spatial index accessor. Use HasSpatialIndex to
// probe for presence first.
func (c *Column) SpatialIndex() (*spatial.ImmutableRTree, error) {
	if err := c.check(c.spatial == nil); err != nil {
		return nil, err
	}

	return c.spatial()
}

func (c *Column) check(missing bool) error {
	if c.closed.Load() {
		return errs.ErrColumnClosed
	}
	if missing {
		return errs.ErrProgrammer
	}

	return nil
}

// Close invalidates the handle. The segment loader calls it before
// unmapping the backing buffer; subsequent accessor calls fail with
// ErrColumnClosed instead of reading freed memory.
func (c *Column) Close() {
	c.closed.Store(true)
}
