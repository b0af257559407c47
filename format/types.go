package format

// ValueType identifies the logical type of a column.
type ValueType uint8

const (
	// TypeString is a dictionary-encoded string column, the only value type
	// this layer serializes.
	TypeString ValueType = 0x1
)

func (v ValueType) String() string {
	switch v {
	case TypeString:
		return "String"
	default:
		return "Unknown"
	}
}

// Column flag byte values. The flag is the first byte of every serialized
// column and selects the id storage variant.
const (
	FlagSingleValued byte = 0x00
	FlagMultiValued  byte = 0x01
)

// Component version bytes.
const (
	VSizeIntsVersion      byte = 0x0
	VSizeRaggedVersion    byte = 0x1
	GenericIndexedVersion byte = 0x1
)

// GenericIndexed flag bits.
const (
	// SortedFlag marks an indexed whose elements are stored in the
	// strategy's byte order and support binary search.
	SortedFlag byte = 0x1
)

// MaxByteWidth is the widest packed integer the vsize containers emit.
const MaxByteWidth = 4
