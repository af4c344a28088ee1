package querycache

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is a registered change listener for one key. The callback
// receives a private copy of the entry after every transition, and false in
// place of the entry once it has been evicted.
type Subscription struct {
	id     uint64
	key    string
	store  *Store
	fn     func(Entry, bool)
	active atomic.Bool
	once   sync.Once
}

func (sub *Subscription) Key() string { return sub.key }

// Unsubscribe stops delivery. Notifications already queued for this
// subscription are dropped. Safe to call more than once.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.active.Store(false)
		sub.store.unsubscribe(sub)
	})
}

func (sub *Subscription) deliver(e Entry, ok bool) {
	if !sub.active.Load() {
		return
	}
	sub.fn(e.clone(), ok)
}

// Subscribe registers fn for changes to key. The entry is created (idle)
// if it does not exist yet, and fn is called once with the current state
// before Subscribe returns, unless the key is already notifying on another
// goroutine, in which case the snapshot is queued behind it.
func (s *Store) Subscribe(ctx context.Context, key string, fn func(Entry, bool)) *Subscription {
	sub := &Subscription{id: s.subSeq.Add(1), key: key, store: s, fn: fn}
	if s.closed.Load() {
		return sub
	}
	sub.active.Store(true)

	st := s.lock(key, true)
	if !st.present {
		st.present = true
		st.status = StatusIdle
	}
	if st.subs == nil {
		st.subs = make(map[uint64]*Subscription)
	}
	st.subs[sub.id] = sub
	st.lastRef = s.now()
	s.replayLocked(ctx, key, st, sub)
	return sub
}

// replay re-delivers the current state of sub's key to sub alone.
func (s *Store) replay(ctx context.Context, sub *Subscription) {
	st := s.lock(sub.key, false)
	if st == nil {
		sub.deliver(Entry{Key: sub.key}, false)
		return
	}
	s.replayLocked(ctx, sub.key, st, sub)
}

// replayLocked unlocks st.
func (s *Store) replayLocked(ctx context.Context, key string, st *keyState, sub *Subscription) {
	e, ok := s.snapshot(ctx, key, st)
	drain := st.disp.enqueue(func() { sub.deliver(e, ok) })
	st.mu.Unlock()
	if drain {
		st.disp.drain()
	}
}

func (s *Store) unsubscribe(sub *Subscription) {
	st := s.lock(sub.key, false)
	if st == nil {
		return
	}
	delete(st.subs, sub.id)
	if len(st.subs) == 0 {
		// retention counts from the last reference
		st.lastRef = s.now()
		s.dropIfEmpty(sub.key, st)
	}
	st.mu.Unlock()
}
