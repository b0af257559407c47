package druid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcwind2007/druid/bitmap"
	"github.com/gcwind2007/druid/column"
	"github.com/gcwind2007/druid/errs"
)

func TestBuildAndDecodeSingleValued(t *testing.T) {
	serde, err := BuildSingleValuedColumn([]string{"a", "c", "b", "c", "a"}, bitmap.RoaringTag)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = serde.WriteTo(&buf)
	require.NoError(t, err)

	col, err := DecodeColumn(buf.Bytes(), column.WithBitmapSerdeFactory(bitmap.RoaringTag))
	require.NoError(t, err)
	require.False(t, col.HasMultipleValues())

	dict, err := col.DictionaryEncoded()
	require.NoError(t, err)
	require.Equal(t, 5, dict.Length())

	bm, err := dict.BitmapFor("c")
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3}, bm.ToArray())
}

func TestBuildAndDecodeMultiValued(t *testing.T) {
	serde, err := BuildMultiValuedColumn([][]string{{"x", "y"}, {}, {"x"}}, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = serde.WriteTo(&buf)
	require.NoError(t, err)

	col, err := DecodeColumn(buf.Bytes())
	require.NoError(t, err)
	require.True(t, col.HasMultipleValues())

	dict, err := col.DictionaryEncoded()
	require.NoError(t, err)

	bm, err := dict.BitmapFor("x")
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 2}, bm.ToArray())
}

func TestBuild_UnknownFactoryTag(t *testing.T) {
	_, err := BuildSingleValuedColumn([]string{"a"}, "concise")
	require.ErrorIs(t, err, errs.ErrUnknownBitmapSerde)

	_, err = BuildMultiValuedColumn([][]string{{"a"}}, "concise")
	require.ErrorIs(t, err, errs.ErrUnknownBitmapSerde)
}

func TestDecodeColumn_Corrupt(t *testing.T) {
	_, err := DecodeColumn(nil)
	require.ErrorIs(t, err, errs.ErrCorruptFormat)
}
