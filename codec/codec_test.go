package codec

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

type sample struct {
	ID        string    `json:"_id"`
	Tags      []string  `json:"tags"`
	Done      bool      `json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func TestByNameCodecsAgree(t *testing.T) {
	in := sample{
		ID:        "t1",
		Tags:      []string{"a", "a", "b"},
		Done:      true,
		UpdatedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
	for _, name := range []string{"", "json", "cbor", "msgpack", "CBOR"} {
		c, err := ByName[sample](name, 0)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%q encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%q decode: %v", name, err)
		}
		if !out.UpdatedAt.Equal(in.UpdatedAt) {
			t.Fatalf("%q: time mismatch %v vs %v", name, out.UpdatedAt, in.UpdatedAt)
		}
		out.UpdatedAt = in.UpdatedAt
		if !reflect.DeepEqual(out, in) {
			t.Fatalf("%q: got %+v want %+v", name, out, in)
		}
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName[sample]("xml", 0); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestLimitCodecRejectsOversized(t *testing.T) {
	c, err := ByName[string]("json", 8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encode(strings.Repeat("x", 32))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(b); err == nil || !strings.Contains(err.Error(), "payload too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestBytesCodecCopies(t *testing.T) {
	src := []byte("abc")
	out, _ := Bytes{}.Decode(src)
	out[0] = 'z'
	if src[0] != 'a' {
		t.Fatalf("Decode aliased its input")
	}
}

func TestDecodeYieldsIndependentValues(t *testing.T) {
	c := JSON[sample]{}
	b, _ := c.Encode(sample{ID: "t1", Tags: []string{"x"}})
	a1, _ := c.Decode(b)
	a2, _ := c.Decode(b)
	a1.Tags[0] = "mutated"
	if a2.Tags[0] != "x" {
		t.Fatalf("decoded values share memory")
	}
}
