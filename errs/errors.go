// Package errs defines the sentinel errors shared by all druid packages.
//
// Errors are organized in two tiers. Four kind sentinels classify every
// failure the column layer can produce; fine-grained sentinels wrap one of
// the kinds at declaration, so callers can match either the precise error
// or its kind with errors.Is:
//
//	if errors.Is(err, errs.ErrCorruptFormat) {
//	    // any structural defect in the serialized column
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every error this module raises itself wraps one of them;
// I/O errors from files, memory mappings, and byte sinks are passed through
// with context only.
var (
	// ErrCorruptFormat indicates a structural defect in serialized bytes:
	// unexpected EOF, illegal widths, non-monotonic offsets, or counts
	// inconsistent with payload lengths. A corrupt column invalidates the
	// enclosing segment; there are no retries at this layer.
	ErrCorruptFormat = errors.New("corrupt column format")

	// ErrInvalidArity indicates a single-valued accessor was used on a
	// multi-valued column or vice versa. Wrong-arity access is a caller
	// bug and is surfaced as a panic carrying this sentinel.
	ErrInvalidArity = errors.New("invalid column arity access")

	// ErrProgrammer indicates API misuse that no input data can cause,
	// such as writing a descriptor-only serde.
	ErrProgrammer = errors.New("programmer error")

	// ErrCollaborator indicates a bitmap factory or R-tree collaborator
	// rejected bytes or values handed to it. The wrapping error names the
	// faulting component.
	ErrCollaborator = errors.New("collaborator failure")
)

// Corrupt-format errors.
var (
	ErrBufferTooSmall      = fmt.Errorf("%w: unexpected end of buffer", ErrCorruptFormat)
	ErrInvalidVersion      = fmt.Errorf("%w: unsupported version byte", ErrCorruptFormat)
	ErrInvalidWidth        = fmt.Errorf("%w: byte width must be between 1 and 4", ErrCorruptFormat)
	ErrInvalidOffsets      = fmt.Errorf("%w: offsets table is not monotonic", ErrCorruptFormat)
	ErrCountMismatch       = fmt.Errorf("%w: element count inconsistent with payload length", ErrCorruptFormat)
	ErrInvalidColumnFlag   = fmt.Errorf("%w: column flag byte must be 0x00 or 0x01", ErrCorruptFormat)
	ErrDictionaryUnsorted  = fmt.Errorf("%w: dictionary is missing the sorted flag", ErrCorruptFormat)
	ErrBitmapCountMismatch = fmt.Errorf("%w: bitmap index count differs from dictionary cardinality", ErrCorruptFormat)
	ErrIDOutOfRange        = fmt.Errorf("%w: dictionary id out of range", ErrCorruptFormat)
	ErrRowOutOfRange       = fmt.Errorf("%w: row ordinal out of range", ErrCorruptFormat)
	ErrTrailingBytes       = fmt.Errorf("%w: trailing bytes do not match spatial index length", ErrCorruptFormat)
)

// Programmer errors.
var (
	ErrDescriptorOnly    = fmt.Errorf("%w: serde holds no payloads; only a materialized serde can write", ErrProgrammer)
	ErrAmbiguousStorage  = fmt.Errorf("%w: exactly one of single or multi value storage must be set", ErrProgrammer)
	ErrUnsortedLookup    = fmt.Errorf("%w: indexOf requires a sorted indexed", ErrProgrammer)
	ErrColumnClosed      = fmt.Errorf("%w: column accessed after its segment was closed", ErrProgrammer)
	ErrValueTooWide      = fmt.Errorf("%w: value exceeds the declared maximum", ErrProgrammer)
	ErrDimensionMismatch = fmt.Errorf("%w: point dimensionality differs from the tree", ErrProgrammer)
)

// Collaborator errors.
var (
	ErrForeignBitmap      = fmt.Errorf("%w: bitmap was produced by a different factory", ErrCollaborator)
	ErrUnknownBitmapSerde = fmt.Errorf("%w: unknown bitmap serde factory tag", ErrCollaborator)
)
