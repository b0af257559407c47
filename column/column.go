package column

import (
	"fmt"
	"iter"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/encoding"
	"github.com/gcwind2007/druid/errs"
	"github.com/gcwind2007/druid/spatial"
)

// DefaultColumnCacheSize is the default byte budget of the string-lookup
// cache. Zero disables caching; every lookup decodes from the buffer.
const DefaultColumnCacheSize = 0

// DictionaryColumn is the composite accessor over a decoded column: the
// sorted dictionary, exactly one of single- or multi-valued id storage, the
// per-value bitmap index, and an optional spatial index. All state is
// offsets into the backing buffer; strings are decoded on demand.
type DictionaryColumn struct {
	dict      encoding.GenericIndexed[string]
	singleIDs *encoding.VSizeInts
	multiIDs  *encoding.VSizeRagged
	bitmaps   encoding.GenericIndexed[bitmap.Bitmap]
	factory   bitmap.Factory
	spatial   *spatial.ImmutableRTree
	cache     *stringCache
}

// Length returns the row count.
func (c *DictionaryColumn) Length() int {
	if c.singleIDs != nil {
		return c.singleIDs.Size()
	}

	return c.multiIDs.Size()
}

// HasMultipleValues reports whether rows hold ordered id lists rather than
// a single id.
func (c *DictionaryColumn) HasMultipleValues() bool {
	return c.multiIDs != nil
}

// Cardinality returns the number of distinct dictionary values.
func (c *DictionaryColumn) Cardinality() int {
	return c.dict.Size()
}

// LookupName resolves a dictionary id to its string value, consulting the
// bounded cache first.
func (c *DictionaryColumn) LookupName(id uint32) (string, error) {
	if int(id) >= c.dict.Size() {
		return "", errs.ErrIDOutOfRange
	}

	if c.cache != nil {
		if name, ok := c.cache.get(id); ok {
			return name, nil
		}
	}

	name, err := c.dict.Get(int(id))
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		c.cache.put(id, name)
	}

	return name, nil
}

// LookupID resolves a string to its dictionary id. On a miss it returns
// -(insertionPoint)-1, so range filters can locate the least element
// greater than the probe.
func (c *DictionaryColumn) LookupID(name string) int {
	id, err := c.dict.IndexOf([]byte(name))
	if err != nil {
		// The codec refuses dictionaries without the sorted flag, so an
		// unsorted lookup here is unreachable on a decoded column.
		panic(err)
	}

	return id
}

// GetSingle returns the id at the given row of a single-valued column.
// Calling it on a multi-valued column panics with ErrInvalidArity.
func (c *DictionaryColumn) GetSingle(row int) (uint32, error) {
	if c.singleIDs == nil {
		panic(errs.ErrInvalidArity)
	}

	return c.singleIDs.Get(row)
}

// GetMulti returns the ordered ids at the given row of a multi-valued
// column, in insertion order and without deduplication. Calling it on a
// single-valued column panics with ErrInvalidArity.
func (c *DictionaryColumn) GetMulti(row int) (encoding.VSizeInts, error) {
	if c.multiIDs == nil {
		panic(errs.ErrInvalidArity)
	}

	return c.multiIDs.Row(row)
}

// BitmapFor returns the bitmap of rows containing the given value. Values
// absent from the dictionary yield the factory's empty bitmap.
func (c *DictionaryColumn) BitmapFor(name string) (bitmap.Bitmap, error) {
	id := c.LookupID(name)
	if id < 0 {
		return c.factory.Empty(), nil
	}

	bm, err := c.bitmaps.Get(id)
	if err != nil {
		return nil, fmt.Errorf("bitmap for %q: %w", name, err)
	}

	return bm, nil
}

// HasSpatialIndex reports whether the column carries a spatial index.
func (c *DictionaryColumn) HasSpatialIndex() bool {
	return c.spatial != nil
}

// SpatialSearch yields the bitmaps of indexed points inside bound. A column
// without a spatial index yields nothing.
func (c *DictionaryColumn) SpatialSearch(bound spatial.Bound) iter.Seq[bitmap.Bitmap] {
	if c.spatial == nil {
		return func(yield func(bitmap.Bitmap) bool) {}
	}

	return c.spatial.Search(bound)
}

// stringCache is a byte-bounded LRU of id → string. simplelru supplies the
// recency order; the byte accounting on top enforces the budget, evicting
// oldest entries until the cache fits. A single mutex guards it, so cache
// contention costs at most one lookup.
type stringCache struct {
	mu     sync.Mutex
	lru    *lru.LRU[uint32, string]
	budget int
	used   int
}

// cacheEntryOverhead approximates the per-entry bookkeeping cost counted
// against the byte budget, on top of the string bytes themselves.
const cacheEntryOverhead = 16

func newStringCache(budget int) *stringCache {
	if budget <= 0 {
		return nil
	}

	c := &stringCache{budget: budget}

	maxEntries := max(1, budget/cacheEntryOverhead)
	cache, err := lru.NewLRU(maxEntries, func(_ uint32, value string) {
		c.used -= len(value) + cacheEntryOverhead
	})
	if err != nil {
		// NewLRU only fails on a non-positive size.
		panic(err)
	}
	c.lru = cache

	return c
}

func (c *stringCache) get(id uint32) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Get(id)
}

func (c *stringCache) put(id uint32, name string) {
	cost := len(name) + cacheEntryOverhead
	if cost > c.budget {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(id, name)
	c.used += cost
	for c.used > c.budget {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}
