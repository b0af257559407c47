package encoding

import "bytes"

// StringStrategy returns the object strategy for UTF-8 strings. Element
// length is implied by the span; the order is lexicographic over the raw
// bytes, which is the dictionary order range filters rely on.
func StringStrategy() ObjectStrategy[string] {
	return ObjectStrategy[string]{
		FromBytes: func(span []byte) (string, error) {
			return string(span), nil
		},
		ToBytes: func(value string) ([]byte, error) {
			return []byte(value), nil
		},
		CompareBytes: bytes.Compare,
	}
}
