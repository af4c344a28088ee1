package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the encoded value of one key from its source.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Request pairs a key with the function that loads it.
type Request struct {
	Key   string
	Fetch FetchFunc
}

// Client runs fetches against a Store: it deduplicates them, serves
// stale-while-revalidate reads and refetches observed keys after an
// invalidation. Many clients may share one store.
type Client struct {
	store         *Store
	log           Logger
	hooks         Hooks
	fetchTimeout  time.Duration
	fenceRetries  int
	prefetchLimit int
	newID         func() string

	group singleflight.Group

	mu       sync.Mutex
	fetchers map[string]FetchFunc
	waiting  map[string]int
}

func NewClient(store *Store, opts ClientOptions) *Client {
	c := &Client{
		store:         store,
		log:           store.log,
		hooks:         store.hooks,
		fetchTimeout:  opts.FetchTimeout,
		fenceRetries:  coalesce(opts.MaxFenceRetries, defaultFenceRetries),
		prefetchLimit: coalesce(opts.PrefetchConcurrency, defaultPrefetchLimit),
		newID:         opts.NewRequestID,
		fetchers:      make(map[string]FetchFunc),
		waiting:       make(map[string]int),
	}
	if c.fenceRetries < 0 {
		c.fenceRetries = 0
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	store.OnEvict(c.forget)
	return c
}

func (c *Client) Store() *Store { return c.store }

// Ensure starts a fetch when the entry needs one and returns the entry as it
// is right now, possibly stale or empty. It never waits for the network.
func (c *Client) Ensure(ctx context.Context, key string, fetch FetchFunc) (Entry, error) {
	if c.store.Closed() {
		return Entry{Key: key}, ErrClosed
	}
	fetch, err := c.resolve(key, fetch)
	if err != nil {
		return Entry{Key: key}, err
	}
	e, _ := c.store.Get(ctx, key)
	if e.NeedsFetch(c.store.Now()) {
		// buffered; nobody has to read it
		c.group.DoChan(key, func() (any, error) { return c.run(ctx, key, fetch) })
	}
	return e, nil
}

// Fetch is the blocking form of Ensure: it starts or joins a fetch when the
// entry needs one and waits for it to settle. A fresh entry is returned as
// is. Fetch failures are reported on the entry; the error return is only for
// ctx and a closed store.
func (c *Client) Fetch(ctx context.Context, key string, fetch FetchFunc) (Entry, error) {
	if c.store.Closed() {
		return Entry{Key: key}, ErrClosed
	}
	fetch, err := c.resolve(key, fetch)
	if err != nil {
		return Entry{Key: key}, err
	}
	e, _ := c.store.Get(ctx, key)
	if !e.Fetching() && !e.NeedsFetch(c.store.Now()) {
		return e, nil
	}

	c.wait(key, 1)
	defer c.wait(key, -1)

	ch := c.group.DoChan(key, func() (any, error) { return c.run(ctx, key, fetch) })
	select {
	case r := <-ch:
		if r.Err != nil {
			return Entry{Key: key}, r.Err
		}
		return r.Val.(Entry).clone(), nil
	case <-ctx.Done():
		e, _ := c.store.Get(context.WithoutCancel(ctx), key)
		return e, ctx.Err()
	}
}

// Invalidate marks key stale and refetches it if anything subscribes to it.
func (c *Client) Invalidate(ctx context.Context, key string) error {
	err := c.store.Invalidate(ctx, key)
	c.refetchObserved(ctx, []string{key})
	return err
}

// InvalidatePrefix invalidates a key family and refetches its observed members.
func (c *Client) InvalidatePrefix(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.store.InvalidatePrefix(ctx, prefix)
	c.refetchObserved(ctx, keys)
	return keys, err
}

func (c *Client) Evict(ctx context.Context, key string) error {
	return c.store.Evict(ctx, key)
}

// Prefetch warms several keys at once. It returns the first error that left
// a key without any value.
func (c *Client) Prefetch(ctx context.Context, reqs ...Request) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.prefetchLimit)
	for _, r := range reqs {
		g.Go(func() error {
			e, err := c.Fetch(gctx, r.Key, r.Fetch)
			if err != nil {
				return err
			}
			if e.Err != nil && !e.HasValue() {
				return e.Err
			}
			return nil
		})
	}
	return g.Wait()
}

// --- internals ---

// run is the body of one singleflight call. The store's MarkLoading decides
// whether this process owns the fetch; a flight started elsewhere is awaited.
// The call is forgotten before anything can notify, so subscribers may call
// Fetch or Ensure on the same key from their callbacks.
func (c *Client) run(ctx context.Context, key string, fetch FetchFunc) (Entry, error) {
	ctx = context.WithoutCancel(ctx)
	for attempt := 0; ; attempt++ {
		if c.store.Closed() {
			return Entry{Key: key}, ErrClosed
		}
		id := c.newID()
		f, started := c.store.MarkLoading(ctx, key, id)
		if !started {
			c.hooks.FetchDeduped(key, f.ID)
			c.group.Forget(key)
			c.awaitFlight(ctx, key, f.ID)
			break
		}
		c.hooks.FetchStarted(key, id)
		if c.fetchOnce(ctx, key, f, fetch) {
			break
		}
		if attempt >= c.fenceRetries || !c.wanted(key) {
			break
		}
		c.log.Debug("refetching after fenced result", Fields{"key": key, "attempt": attempt + 1})
	}
	e, _ := c.store.Get(ctx, key)
	return e, nil
}

// fetchOnce runs fetch for flight f and records the outcome. It reports
// false only when the result was fenced by an invalidation.
func (c *Client) fetchOnce(ctx context.Context, key string, f Flight, fetch FetchFunc) bool {
	fctx := ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}
	payload, err := call(fctx, fetch)
	// The transition below notifies on this goroutine. A callback that
	// fetches key again must start its own call rather than join this one.
	c.group.Forget(key)
	if err != nil {
		c.hooks.FetchFailed(key, err)
		c.log.Warn("fetch failed", Fields{"key": key, "request_id": f.ID, "err": err})
		c.store.fail(ctx, key, f.ID, &FetchError{Key: key, RequestID: f.ID, Err: err})
		return true
	}
	ok, err := c.store.complete(ctx, key, f, payload, c.store.Now())
	if err != nil {
		c.log.Warn("storing fetch result failed", Fields{"key": key, "request_id": f.ID, "err": err})
		return true
	}
	return ok
}

func call(ctx context.Context, fetch FetchFunc) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("querycache: fetch panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

// awaitFlight blocks until flight id on key is no longer in progress.
func (c *Client) awaitFlight(ctx context.Context, key, id string) {
	done := make(chan struct{})
	var once sync.Once
	sub := c.store.Subscribe(ctx, key, func(e Entry, ok bool) {
		if !ok || e.InflightID != id {
			once.Do(func() { close(done) })
		}
	})
	defer sub.Unsubscribe()
	if !sub.active.Load() {
		return // store closed
	}
	<-done
}

func (c *Client) refetchObserved(ctx context.Context, keys []string) {
	for _, k := range keys {
		if !c.store.Observed(k) {
			continue
		}
		fetch := c.fetcher(k)
		if fetch == nil {
			continue
		}
		if _, err := c.Ensure(ctx, k, fetch); err != nil {
			return
		}
	}
}

// wanted reports whether anyone still cares about key's value.
func (c *Client) wanted(key string) bool {
	c.mu.Lock()
	n := c.waiting[key]
	c.mu.Unlock()
	return n > 0 || c.store.Observed(key)
}

func (c *Client) wait(key string, delta int) {
	c.mu.Lock()
	c.waiting[key] += delta
	if c.waiting[key] <= 0 {
		delete(c.waiting, key)
	}
	c.mu.Unlock()
}

// resolve records fetch as key's loader, or falls back to the one recorded
// earlier when fetch is nil.
func (c *Client) resolve(key string, fetch FetchFunc) (FetchFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fetch == nil {
		fetch = c.fetchers[key]
		if fetch == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoFetcher, key)
		}
		return fetch, nil
	}
	c.fetchers[key] = fetch
	return fetch, nil
}

func (c *Client) fetcher(key string) FetchFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchers[key]
}

func (c *Client) forget(key string) {
	c.mu.Lock()
	delete(c.fetchers, key)
	c.mu.Unlock()
}
