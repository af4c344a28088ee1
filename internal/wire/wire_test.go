package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) Frame {
	t.Helper()
	f, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return f
}

func TestRoundTripEmptyAndNonEmpty(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 42, time.UTC)
	cases := []struct {
		gen     uint64
		at      time.Time
		payload []byte
	}{
		{0, time.Time{}, nil},
		{42, at, []byte("hello")},
		{math.MaxUint64, at, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		enc := Encode(Frame{Gen: tc.gen, FetchedAt: tc.at, Payload: tc.payload})
		f := mustDecode(t, enc)
		if f.Gen != tc.gen {
			t.Fatalf("gen mismatch: got %d want %d", f.Gen, tc.gen)
		}
		if !f.FetchedAt.Equal(tc.at) {
			t.Fatalf("fetchedAt mismatch: got %v want %v", f.FetchedAt, tc.at)
		}
		if !bytes.Equal(f.Payload, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", f.Payload, tc.payload)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	enc := Encode(Frame{Gen: 7, Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestDecodeCorruptHeadersAndLengths(t *testing.T) {
	enc := Encode(Frame{Gen: 1, Payload: []byte("abc")})

	cases := map[string]func([]byte) []byte{
		"short": func(b []byte) []byte { return b[:headerLen-1] },
		"magic": func(b []byte) []byte {
			b[0] = 'X'
			return b
		},
		"version": func(b []byte) []byte {
			b[4] = version + 1
			return b
		},
		"kind": func(b []byte) []byte {
			b[5] = 9
			return b
		},
		"vlen too large": func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[headerLen-4:headerLen], 1000)
			return b
		},
		"truncated payload": func(b []byte) []byte { return b[:len(b)-1] },
	}
	for name, mutate := range cases {
		b := mutate(append([]byte(nil), enc...))
		if _, err := Decode(b); err != ErrCorrupt {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestDecodeForeignBytes(t *testing.T) {
	if _, err := Decode([]byte("not-wire-format-at-all-really-not")); err != ErrCorrupt {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
