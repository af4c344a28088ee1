// Package codec converts query results to and from the bytes held by a
// provider. Decoding always yields a fresh value, which is what keeps views
// from aliasing cached state.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
