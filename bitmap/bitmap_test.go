package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcwind2007/druid/errs"
)

func factories() map[string]Factory {
	return map[string]Factory{
		LegacyTag:  LegacyFactory{},
		RoaringTag: RoaringFactory{},
	}
}

func TestFactory_Empty(t *testing.T) {
	for tag, factory := range factories() {
		t.Run(tag, func(t *testing.T) {
			empty := factory.Empty()
			require.True(t, empty.IsEmpty())
			require.Equal(t, 0, empty.Cardinality())
			require.False(t, empty.Contains(0))
			require.Empty(t, empty.ToArray())
		})
	}
}

func TestFactory_FromRows(t *testing.T) {
	for tag, factory := range factories() {
		t.Run(tag, func(t *testing.T) {
			bm := factory.FromRows(5, 1, 3, 1)
			require.False(t, bm.IsEmpty())
			require.Equal(t, 3, bm.Cardinality())
			require.True(t, bm.Contains(1))
			require.True(t, bm.Contains(3))
			require.True(t, bm.Contains(5))
			require.False(t, bm.Contains(2))
			require.Equal(t, []uint32{1, 3, 5}, bm.ToArray())
		})
	}
}

func TestFactory_Rows(t *testing.T) {
	for tag, factory := range factories() {
		t.Run(tag, func(t *testing.T) {
			bm := factory.FromRows(0, 2, 100000)

			var got []uint32
			for row := range bm.Rows() {
				got = append(got, row)
			}
			require.Equal(t, []uint32{0, 2, 100000}, got)
		})
	}
}

func TestFactory_Union(t *testing.T) {
	for tag, factory := range factories() {
		t.Run(tag, func(t *testing.T) {
			u, err := factory.Union(
				factory.FromRows(1, 2),
				factory.Empty(),
				factory.FromRows(2, 7),
			)
			require.NoError(t, err)
			require.Equal(t, []uint32{1, 2, 7}, u.ToArray())
		})
	}
}

func TestFactory_RejectsForeignBitmaps(t *testing.T) {
	legacy := LegacyFactory{}
	roaring := RoaringFactory{}

	_, err := legacy.Union(roaring.FromRows(1))
	require.ErrorIs(t, err, errs.ErrForeignBitmap)
	require.ErrorIs(t, err, errs.ErrCollaborator)

	_, err = roaring.Serialize(legacy.FromRows(1))
	require.ErrorIs(t, err, errs.ErrForeignBitmap)
}

func TestFactory_SerializeRoundTrip(t *testing.T) {
	for tag, factory := range factories() {
		t.Run(tag, func(t *testing.T) {
			bm := factory.FromRows(0, 31, 32, 63, 64, 1000)

			data, err := factory.Serialize(bm)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			back, err := factory.Deserialize(data)
			require.NoError(t, err)
			require.Equal(t, bm.ToArray(), back.ToArray())
		})
	}
}

func TestFactory_EmptySerializesToZeroBytes(t *testing.T) {
	for tag, factory := range factories() {
		t.Run(tag, func(t *testing.T) {
			data, err := factory.Serialize(factory.Empty())
			require.NoError(t, err)
			require.Empty(t, data)

			back, err := factory.Deserialize(nil)
			require.NoError(t, err)
			require.True(t, back.IsEmpty())
		})
	}
}

func TestLookup(t *testing.T) {
	sf, err := Lookup("")
	require.NoError(t, err)
	require.Equal(t, LegacyTag, sf.Tag())

	sf, err = Lookup(LegacyTag)
	require.NoError(t, err)
	require.Equal(t, LegacyTag, sf.Tag())

	sf, err = Lookup(RoaringTag)
	require.NoError(t, err)
	require.Equal(t, RoaringTag, sf.Tag())

	_, err = Lookup("concise")
	require.ErrorIs(t, err, errs.ErrUnknownBitmapSerde)
	require.ErrorIs(t, err, errs.ErrCollaborator)
}

func TestSerdeFactory_Strategy(t *testing.T) {
	for _, tag := range []string{LegacyTag, RoaringTag} {
		t.Run(tag, func(t *testing.T) {
			sf, err := Lookup(tag)
			require.NoError(t, err)

			strategy := sf.Strategy()
			bm := sf.Factory().FromRows(2, 4, 6)

			data, err := strategy.ToBytes(bm)
			require.NoError(t, err)

			back, err := strategy.FromBytes(data)
			require.NoError(t, err)
			require.Equal(t, []uint32{2, 4, 6}, back.ToArray())
		})
	}
}
