// Package endian provides byte order utilities for binary encoding and decoding.
//
// The column format is defined on big-endian byte order, so format code in
// this module always uses GetBigEndianEngine(). The engine combines the
// ByteOrder and AppendByteOrder interfaces from encoding/binary, which lets
// writers append multi-byte fields without intermediate scratch buffers.
//
// All functions are safe for concurrent use; the returned engines are
// immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. It is satisfied by binary.BigEndian and
// binary.LittleEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetBigEndianEngine returns the engine for the normative column byte order.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// GetLittleEndianEngine returns the little-endian engine. The column format
// never uses it; it exists for auxiliary payloads whose collaborator formats
// are little-endian.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// NativeByteOrder probes the host byte order through a fixed integer value.
// Hosts with little-endian native order must byte-swap on access when reading
// the big-endian column format; encoding/binary performs the swap.
func NativeByteOrder() binary.ByteOrder {
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return NativeByteOrder() == binary.LittleEndian
}
