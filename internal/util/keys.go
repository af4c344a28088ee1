package util

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Canonical builds a deterministic key from a kind and its parameters:
// kind:k1=v1&k2=v2 with parameter names sorted. No params yields "kind:".
func Canonical(kind string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte(':')
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Redact returns a short stable digest of a key, for logs.
func Redact(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
