package codec

import (
	"fmt"
	"strings"
)

// ByName returns the codec registered under name ("json", "cbor", "msgpack"),
// wrapped in a LimitCodec when maxDecode > 0. An empty name means json.
func ByName[V any](name string, maxDecode int) (Codec[V], error) {
	var inner Codec[V]
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		inner = JSON[V]{}
	case "cbor":
		c, err := NewCBOR[V](false)
		if err != nil {
			return nil, err
		}
		inner = c
	case "msgpack":
		inner = Msgpack[V]{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if maxDecode > 0 {
		return LimitCodec[V]{Inner: inner, MaxDecode: maxDecode}, nil
	}
	return inner, nil
}
