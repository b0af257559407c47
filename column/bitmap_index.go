package column

import (
	"fmt"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/encoding"
	"github.com/gcwind2007/druid/errs"
)

// BitmapIndex couples the dictionary, the per-value bitmaps, and the bitmap
// factory so predicate evaluation can resolve equality and range filters to
// row sets without knowing the bitmap layout. Element i of the bitmaps is
// the set of row ordinals whose value is dictionary id i.
type BitmapIndex struct {
	dict    encoding.GenericIndexed[string]
	bitmaps encoding.GenericIndexed[bitmap.Bitmap]
	factory bitmap.Factory
}

// Cardinality returns the number of indexed values, equal to the dictionary
// cardinality.
func (x *BitmapIndex) Cardinality() int {
	return x.bitmaps.Size()
}

// Factory returns the bitmap factory that decodes and unions this index's
// bitmaps.
func (x *BitmapIndex) Factory() bitmap.Factory {
	return x.factory
}

// Get returns the bitmap of rows whose value is dictionary id.
func (x *BitmapIndex) Get(id uint32) (bitmap.Bitmap, error) {
	if int(id) >= x.bitmaps.Size() {
		return nil, errs.ErrIDOutOfRange
	}

	bm, err := x.bitmaps.Get(int(id))
	if err != nil {
		return nil, fmt.Errorf("bitmap %d: %w", id, err)
	}

	return bm, nil
}

// ForValue returns the bitmap of rows containing the given string value.
// Values absent from the dictionary yield the factory's empty bitmap.
func (x *BitmapIndex) ForValue(name string) (bitmap.Bitmap, error) {
	id, err := x.dict.IndexOf([]byte(name))
	if err != nil {
		return nil, err
	}
	if id < 0 {
		return x.factory.Empty(), nil
	}

	return x.Get(uint32(id)) //nolint:gosec
}
