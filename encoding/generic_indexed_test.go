package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gcwind2007/druid/errs"
)

func encodeStrings(t *testing.T, values []string, sorted bool) []byte {
	t.Helper()

	w := NewGenericIndexedWriter(StringStrategy(), sorted)
	require.NoError(t, w.WriteSlice(values))

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, w.NumBytes(), n)

	return buf.Bytes()
}

func TestGenericIndexedWriter_Serialize(t *testing.T) {
	data := encodeStrings(t, []string{"a", "b", "c"}, true)

	expected := []byte{
		0x01,                   // version
		0x01,                   // flags: sorted
		0x00, 0x00, 0x00, 0x0F, // totalBytes = 4*3 + 3
		0x00, 0x00, 0x00, 0x03, // count
		0x00, 0x00, 0x00, 0x01, // end offset of "a"
		0x00, 0x00, 0x00, 0x02, // end offset of "b"
		0x00, 0x00, 0x00, 0x03, // end offset of "c"
		'a', 'b', 'c',
	}
	require.Equal(t, expected, data)
}

func TestGenericIndexedWriter_RejectsUnsortedInput(t *testing.T) {
	w := NewGenericIndexedWriter(StringStrategy(), true)
	require.NoError(t, w.Write("b"))

	err := w.Write("a")
	require.ErrorIs(t, err, errs.ErrProgrammer)

	// Duplicates are out of order too: the dictionary holds distinct values.
	w2 := NewGenericIndexedWriter(StringStrategy(), true)
	require.NoError(t, w2.Write("a"))
	require.ErrorIs(t, w2.Write("a"), errs.ErrProgrammer)

	// The empty string sorts first and must still anchor the order check.
	w3 := NewGenericIndexedWriter(StringStrategy(), true)
	require.NoError(t, w3.Write(""))
	require.ErrorIs(t, w3.Write(""), errs.ErrProgrammer)
	require.NoError(t, w3.Write("a"))
}

func TestGenericIndexed_RoundTrip(t *testing.T) {
	values := []string{"", "apple", "banana", "cherry"}

	g, consumed, err := ReadGenericIndexed(encodeStrings(t, values, true), StringStrategy())
	require.NoError(t, err)
	require.True(t, g.Sorted())
	require.Equal(t, len(values), g.Size())

	for i, want := range values {
		got, err := g.Get(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	data := encodeStrings(t, values, true)
	require.Equal(t, len(data), consumed)

	_, err = g.Get(len(values))
	require.ErrorIs(t, err, errs.ErrIDOutOfRange)
}

func TestGenericIndexed_IndexOf(t *testing.T) {
	g, _, err := ReadGenericIndexed(encodeStrings(t, []string{"apple", "banana", "cherry"}, true), StringStrategy())
	require.NoError(t, err)

	for i, v := range []string{"apple", "banana", "cherry"} {
		idx, err := g.IndexOf([]byte(v))
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}

	// Misses return -(insertionPoint)-1.
	idx, err := g.IndexOf([]byte("blueberry"))
	require.NoError(t, err)
	require.Equal(t, -3, idx) // would insert at position 2

	idx, err = g.IndexOf([]byte(""))
	require.NoError(t, err)
	require.Equal(t, -1, idx) // before everything

	idx, err = g.IndexOf([]byte("zebra"))
	require.NoError(t, err)
	require.Equal(t, -4, idx) // after everything
}

func TestGenericIndexed_IndexOfUnsorted(t *testing.T) {
	g, _, err := ReadGenericIndexed(encodeStrings(t, []string{"b", "a"}, false), StringStrategy())
	require.NoError(t, err)
	require.False(t, g.Sorted())

	_, err = g.IndexOf([]byte("a"))
	require.ErrorIs(t, err, errs.ErrUnsortedLookup)
}

func TestGenericIndexed_ByteSpanAndAll(t *testing.T) {
	values := []string{"x", "", "yz"}

	g, _, err := ReadGenericIndexed(encodeStrings(t, values, false), StringStrategy())
	require.NoError(t, err)

	span, err := g.ByteSpan(2)
	require.NoError(t, err)
	require.Equal(t, []byte("yz"), span)

	span, err = g.ByteSpan(1)
	require.NoError(t, err)
	require.Empty(t, span)

	var got []string
	for _, v := range g.All() {
		got = append(got, v)
	}
	require.Equal(t, values, got)
}

func TestGenericIndexed_Empty(t *testing.T) {
	g, consumed, err := ReadGenericIndexed(encodeStrings(t, nil, true), StringStrategy())
	require.NoError(t, err)
	require.Equal(t, 10, consumed)
	require.Equal(t, 0, g.Size())

	idx, err := g.IndexOf([]byte("anything"))
	require.NoError(t, err)
	require.Equal(t, -1, idx)
}

func TestReadGenericIndexed_Corrupt(t *testing.T) {
	full := encodeStrings(t, []string{"a", "bc"}, true)

	for i := 0; i < len(full); i++ {
		_, _, err := ReadGenericIndexed(full[:i], StringStrategy())
		require.Error(t, err, "prefix of %d bytes", i)
		require.ErrorIs(t, err, errs.ErrCorruptFormat)
	}

	// Decreasing end offsets.
	corrupt := append([]byte{}, full...)
	corrupt[13] = 4 // first end offset now beyond the second
	_, _, err := ReadGenericIndexed(corrupt, StringStrategy())
	require.ErrorIs(t, err, errs.ErrInvalidOffsets)

	// count too large for totalBytes.
	corrupt = append([]byte{}, full...)
	corrupt[9] = 0xFF
	_, _, err = ReadGenericIndexed(corrupt, StringStrategy())
	require.ErrorIs(t, err, errs.ErrCountMismatch)

	// Unknown version.
	corrupt = append([]byte{}, full...)
	corrupt[0] = 0x9
	_, _, err = ReadGenericIndexed(corrupt, StringStrategy())
	require.ErrorIs(t, err, errs.ErrInvalidVersion)
}
