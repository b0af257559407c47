package column

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcwind2007/druid/errs"
)

func singleColumn(t *testing.T, values []string, opts ...ReaderOption) *DictionaryColumn {
	t.Helper()

	serde, err := BuildSingleValued(values, nil)
	require.NoError(t, err)

	return decodeColumn(t, encodeSerde(t, serde), opts...)
}

func multiColumn(t *testing.T, rows [][]string, opts ...ReaderOption) *DictionaryColumn {
	t.Helper()

	serde, err := BuildMultiValued(rows, nil)
	require.NoError(t, err)

	return decodeColumn(t, encodeSerde(t, serde), opts...)
}

func TestDictionaryColumn_WrongArityPanics(t *testing.T) {
	single := singleColumn(t, []string{"a", "b"})
	multi := multiColumn(t, [][]string{{"a"}, {"b"}})

	require.PanicsWithValue(t, errs.ErrInvalidArity, func() {
		_, _ = single.GetMulti(0)
	})
	require.PanicsWithValue(t, errs.ErrInvalidArity, func() {
		_, _ = multi.GetSingle(0)
	})
}

func TestDictionaryColumn_RowOutOfRange(t *testing.T) {
	col := singleColumn(t, []string{"a", "b"})

	_, err := col.GetSingle(2)
	require.ErrorIs(t, err, errs.ErrRowOutOfRange)
	require.ErrorIs(t, err, errs.ErrCorruptFormat)

	_, err = col.GetSingle(-1)
	require.ErrorIs(t, err, errs.ErrRowOutOfRange)
}

func TestDictionaryColumn_LookupNameOutOfRange(t *testing.T) {
	col := singleColumn(t, []string{"a"})

	_, err := col.LookupName(1)
	require.ErrorIs(t, err, errs.ErrIDOutOfRange)
	require.ErrorIs(t, err, errs.ErrCorruptFormat)
}

func TestDictionaryColumn_CachedLookups(t *testing.T) {
	col := singleColumn(t, []string{"alpha", "beta", "alpha"}, WithColumnCacheSize(1024))
	require.NotNil(t, col.cache)

	for i := 0; i < 3; i++ {
		name, err := col.LookupName(0)
		require.NoError(t, err)
		require.Equal(t, "alpha", name)
	}

	// The repeated value is now served from the cache.
	cached, ok := col.cache.get(0)
	require.True(t, ok)
	require.Equal(t, "alpha", cached)
}

func TestDictionaryColumn_CacheDisabledByDefault(t *testing.T) {
	col := singleColumn(t, []string{"a"})
	require.Nil(t, col.cache)

	name, err := col.LookupName(0)
	require.NoError(t, err)
	require.Equal(t, "a", name)
}

func TestStringCache_ByteBudgetEviction(t *testing.T) {
	// Budget fits two entries of cost len("xxxx")+overhead = 20 each.
	cache := newStringCache(40)
	require.NotNil(t, cache)

	cache.put(0, "aaaa")
	cache.put(1, "bbbb")
	require.Equal(t, 40, cache.used)

	_, ok := cache.get(0)
	require.True(t, ok)

	// A third entry pushes the oldest out.
	cache.put(2, "cccc")
	require.LessOrEqual(t, cache.used, 40)

	_, ok = cache.get(1)
	require.False(t, ok)
	_, ok = cache.get(2)
	require.True(t, ok)
}

func TestStringCache_OversizedValueSkipped(t *testing.T) {
	cache := newStringCache(20)
	cache.put(0, "this string costs more than the whole budget")

	_, ok := cache.get(0)
	require.False(t, ok)
	require.Equal(t, 0, cache.used)
}

func TestStringCache_ZeroBudgetDisables(t *testing.T) {
	require.Nil(t, newStringCache(0))
	require.Nil(t, newStringCache(-1))
}

func TestDictionaryColumn_BitmapIndexAccessor(t *testing.T) {
	serde, err := BuildSingleValued([]string{"a", "b", "a", "c"}, nil)
	require.NoError(t, err)

	builder := NewColumnBuilder()
	require.NoError(t, Decode(encodeSerde(t, serde), builder))

	idx, err := builder.Build().BitmapIndex()
	require.NoError(t, err)
	require.Equal(t, 3, idx.Cardinality())

	bm, err := idx.Get(0)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 2}, bm.ToArray())

	bm, err = idx.ForValue("c")
	require.NoError(t, err)
	require.Equal(t, []uint32{3}, bm.ToArray())

	bm, err = idx.ForValue("nope")
	require.NoError(t, err)
	require.True(t, bm.IsEmpty())

	_, err = idx.Get(3)
	require.ErrorIs(t, err, errs.ErrIDOutOfRange)
}

func TestBitmapIndex_EveryRowCovered(t *testing.T) {
	// Single-valued columns: the union over all per-value bitmaps is the
	// full row set, each row exactly once.
	values := []string{"d", "a", "c", "a", "b", "d"}

	serde, err := BuildSingleValued(values, nil)
	require.NoError(t, err)

	builder := NewColumnBuilder()
	require.NoError(t, Decode(encodeSerde(t, serde), builder))

	idx, err := builder.Build().BitmapIndex()
	require.NoError(t, err)

	seen := make(map[uint32]int)
	for id := 0; id < idx.Cardinality(); id++ {
		bm, err := idx.Get(uint32(id))
		require.NoError(t, err)
		for row := range bm.Rows() {
			seen[row]++
		}
	}

	require.Len(t, seen, len(values))
	for row, count := range seen {
		require.Equal(t, 1, count, "row %d", row)
	}
}
