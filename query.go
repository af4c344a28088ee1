package querycache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/querycache/codec"
)

// Query describes a typed read: the key it lives under, how its value is
// encoded, and how to load it. A disabled query never fetches.
type Query[V any] struct {
	Key      string
	Codec    codec.Codec[V]
	Fetch    func(ctx context.Context) (V, error)
	Disabled bool
}

// Request adapts q to the byte-level Client API.
func (q Query[V]) Request() Request {
	return Request{Key: q.Key, Fetch: q.fetchFunc()}
}

func (q Query[V]) fetchFunc() FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		v, err := q.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		b, err := q.Codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", q.Key, err)
		}
		return b, nil
	}
}

// Result is what a view renders: the decoded value when there is one, the
// last error when there is one, and where the key is in its lifecycle.
// Value is decoded fresh for every Result and may be modified freely.
type Result[V any] struct {
	Key       string
	Value     V
	HasValue  bool
	Status    Status
	Err       error
	Stale     bool
	Fetching  bool
	FetchedAt time.Time
}

// Decode turns an entry into a Result. A payload that fails to decode is
// reported in Err and the value is treated as absent.
func Decode[V any](e Entry, present bool, cd codec.Codec[V], now time.Time) Result[V] {
	r := Result[V]{Key: e.Key}
	if !present {
		return r
	}
	r.Status = e.Status
	r.Err = e.Err
	r.Fetching = e.Fetching()
	r.FetchedAt = e.FetchedAt
	if !e.HasValue() {
		return r
	}
	v, err := cd.Decode(e.Payload)
	if err != nil {
		r.Err = fmt.Errorf("decode %q: %w", e.Key, err)
		return r
	}
	r.Value = v
	r.HasValue = true
	r.Stale = e.Stale(now)
	return r
}

// Ensure is the typed form of Client.Ensure.
func Ensure[V any](ctx context.Context, c *Client, q Query[V]) Result[V] {
	if q.Disabled {
		return Result[V]{Key: q.Key}
	}
	e, err := c.Ensure(ctx, q.Key, q.fetchFunc())
	if err != nil {
		return Result[V]{Key: q.Key, Err: err}
	}
	return Decode(e, true, q.Codec, c.store.Now())
}

// Fetch is the typed form of Client.Fetch. Context and store errors are
// reported in Result.Err next to whatever value the entry still holds.
func Fetch[V any](ctx context.Context, c *Client, q Query[V]) Result[V] {
	if q.Disabled {
		return Result[V]{Key: q.Key}
	}
	e, err := c.Fetch(ctx, q.Key, q.fetchFunc())
	r := Decode(e, true, q.Codec, c.store.Now())
	if err != nil {
		r.Err = err
	}
	return r
}

// Peek reads the cached state of q without fetching.
func Peek[V any](ctx context.Context, c *Client, q Query[V]) Result[V] {
	e, ok := c.store.Get(ctx, q.Key)
	return Decode(e, ok, q.Codec, c.store.Now())
}
