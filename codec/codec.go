// Package codec encodes and decodes flat key/value property sets, and
// provides the byte-level storage backends the manager persists through.
package codec

import "io"

// Codec converts between a flat string mapping and its serialized form.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Decode reads a serialized property set.
	Decode(r io.Reader) (map[string]string, error)

	// Encode writes values in a deterministic order. A non-empty comment
	// is emitted as a header when the format supports one.
	Encode(w io.Writer, values map[string]string, comment string) error
}
