package querycache

import (
	"context"
	"sync"
	"sync/atomic"
)

// Binding keeps a view in step with one query. Every change to the query's
// key is decoded into a fresh value, passed through the projection and handed
// to the view callback, in the order the changes happened.
type Binding[V, P any] struct {
	client *Client
	query  Query[V]
	fn     func(Result[P])
	sub    *Subscription
	closed atomic.Bool

	mu      sync.Mutex
	project func(V) P
	last    Result[P]
}

// Watch subscribes fn to q through project and makes sure a fetch is under
// way if the cached value is missing or stale. fn sees the current state
// before Watch returns, unless the key is busy notifying on another goroutine.
func Watch[V, P any](ctx context.Context, c *Client, q Query[V], project func(V) P, fn func(Result[P])) *Binding[V, P] {
	b := &Binding[V, P]{client: c, query: q, fn: fn, project: project}
	if q.Disabled {
		b.last = Result[P]{Key: q.Key}
		fn(b.last)
		return b
	}
	b.sub = c.store.Subscribe(ctx, q.Key, b.onEntry)
	Ensure(ctx, c, q)
	return b
}

// Identity is the projection for views that render the value as is.
func Identity[V any](v V) V { return v }

func (b *Binding[V, P]) Key() string { return b.query.Key }

// Current returns the last result delivered to the view.
func (b *Binding[V, P]) Current() Result[P] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// SetProjection swaps the projection and re-renders from the cached entry
// without fetching.
func (b *Binding[V, P]) SetProjection(project func(V) P) {
	b.mu.Lock()
	b.project = project
	b.mu.Unlock()
	if b.sub == nil || b.closed.Load() {
		return
	}
	b.client.store.replay(context.Background(), b.sub)
}

// Close stops delivery. Fetches already running still complete and update
// the cache.
func (b *Binding[V, P]) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
}

func (b *Binding[V, P]) onEntry(e Entry, present bool) {
	if b.closed.Load() {
		return
	}
	r := Decode(e, present, b.query.Codec, b.client.store.Now())

	b.mu.Lock()
	project := b.project
	b.mu.Unlock()

	p := Result[P]{
		Key:       r.Key,
		HasValue:  r.HasValue,
		Status:    r.Status,
		Err:       r.Err,
		Stale:     r.Stale,
		Fetching:  r.Fetching,
		FetchedAt: r.FetchedAt,
	}
	if r.HasValue {
		p.Value = project(r.Value)
	}
	b.mu.Lock()
	b.last = p
	b.mu.Unlock()

	b.fn(p)
}
