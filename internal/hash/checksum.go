package hash

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Checksum computes the xxHash64 of the given bytes. Segment files record a
// checksum per column payload so loaders can detect torn or tampered writes
// before handing bytes to the column codec.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ChecksumHex formats the xxHash64 of data as a fixed-width hex string,
// suitable for JSON metadata (a raw uint64 does not survive JSON number
// precision).
func ChecksumHex(data []byte) string {
	return FormatHex(xxhash.Sum64(data))
}

// FormatHex formats a 64-bit checksum as 16 lowercase hex digits.
func FormatHex(sum uint64) string {
	const width = 16
	s := strconv.FormatUint(sum, 16)
	for len(s) < width {
		s = "0" + s
	}

	return s
}

// Verify reports whether data hashes to the given hex checksum.
func Verify(data []byte, hexSum string) bool {
	return ChecksumHex(data) == hexSum
}
