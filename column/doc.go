// Package column implements the dictionary-encoded string column: the
// composite accessor served to the query layer, the supplier-based
// ColumnBuilder the segment loader populates, and the codec that serializes
// the composite to a byte sink and decodes it from a memory-mapped buffer.
//
// A serialized column is positional, not tagged: one flag byte selecting
// single- or multi-valued id storage, the sorted string dictionary, the id
// storage, the per-value bitmap index, and an optional trailing spatial
// index. The codec reads and writes the components in exactly that order.
//
// Columns are write-once. A decoded column is an immutable view over the
// caller's buffer and is freely shareable across readers; the only mutable
// state is the bounded string-lookup cache, which is lock-protected.
package column
