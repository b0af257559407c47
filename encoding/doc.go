// Package encoding implements the primitive containers of the column format:
// width-packed integer arrays (VSizeInts), packed ragged lists of integers
// (VSizeRagged), and the length-prefixed indexed array of opaque items
// (GenericIndexed) with its pluggable object strategies.
//
// All serialized layouts use big-endian byte order. Readers are zero-copy
// views over the caller's buffer: they retain sub-slices of it and decode
// elements on demand, so the buffer must stay valid and unmodified for the
// lifetime of the view. The GenericIndexed and VSizeInts writers accumulate
// into pooled buffers; the VSizeRagged writer keeps its rows in memory until
// WriteTo. All writers emit through the io.WriterTo convention and report
// their exact byte count through NumBytes before writing.
package encoding
