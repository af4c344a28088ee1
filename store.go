package querycache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gen "github.com/unkn0wn-root/querycache/genstore"
	"github.com/unkn0wn-root/querycache/internal/wire"
	pr "github.com/unkn0wn-root/querycache/provider"
)

// keyState is the store's private record for one key. Values live in the
// provider; everything else lives here, guarded by mu.
type keyState struct {
	mu      sync.Mutex
	removed bool // dropped from Store.keys; re-lookup required

	present    bool
	status     Status
	err        error
	hasValue   bool
	valueGen   uint64
	fetchedAt  time.Time
	staleAfter time.Time
	inflight   string
	flightGen  uint64
	lastRef    time.Time

	subs map[uint64]*Subscription
	disp dispatcher
}

func (st *keyState) restingStatus() Status {
	if st.hasValue {
		return StatusSuccess
	}
	return StatusIdle
}

func (st *keyState) reset() {
	st.present = false
	st.status = StatusIdle
	st.err = nil
	st.hasValue = false
	st.valueGen = 0
	st.fetchedAt = time.Time{}
	st.staleAfter = time.Time{}
	st.inflight = ""
	st.flightGen = 0
}

// Store is the process-wide keyed store of query results. Construct one at
// start-up, hand it to every Client, and Close it on shutdown.
//
// Lock order: a keyState's mu may be held while taking Store.mu, never the
// other way around.
type Store struct {
	ns             string
	provider       pr.Provider
	gen            gen.GenStore
	log            Logger
	hooks          Hooks
	now            func() time.Time
	staleTime      time.Duration
	retention      time.Duration
	sweepInterval  time.Duration
	valueTTL       time.Duration
	computeSetCost SetCostFunc

	mu      sync.Mutex
	keys    map[string]*keyState
	onEvict []func(key string)
	subSeq  atomic.Uint64

	closed    atomic.Bool
	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("querycache: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("querycache: namespace is required")
	}

	s := &Store{
		ns:       opts.Namespace,
		provider: opts.Provider,
		keys:     make(map[string]*keyState),
		now:      orNow(opts.Now),
	}

	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.staleTime = coalesce[time.Duration](opts.StaleTime, defaultStaleTime)
	s.retention = coalesce[time.Duration](opts.Retention, defaultRetention)
	s.sweepInterval = coalesce[time.Duration](opts.SweepInterval, defaultSweep)
	s.valueTTL = opts.ValueTTL
	genRetention := coalesce[time.Duration](opts.GenRetention, defaultGenRetention)

	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		// default to in-process generations with periodic cleanup
		s.gen = gen.NewLocalGenStore(max(s.sweepInterval, 0), genRetention)
	}

	if s.sweepInterval > 0 {
		s.ticker = time.NewTicker(s.sweepInterval)
		s.stopCh = make(chan struct{})
		s.closeWg.Add(1)
		go s.cleanupLoop()
	}
	return s, nil
}

// Now is the store's clock.
func (s *Store) Now() time.Time { return s.now() }

// StaleTime is the configured staleness window.
func (s *Store) StaleTime() time.Duration { return s.staleTime }

func (s *Store) Closed() bool { return s.closed.Load() }

// Get returns a copy of the entry for key, or false when there is none.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool) {
	if s.closed.Load() {
		return Entry{Key: key}, false
	}
	st := s.lock(key, false)
	if st == nil {
		return Entry{Key: key}, false
	}
	defer st.mu.Unlock()
	return s.snapshot(ctx, key, st)
}

// Put replaces the value for key unconditionally: status becomes success,
// the error and any in-flight id are cleared.
func (s *Store) Put(ctx context.Context, key string, payload []byte, fetchedAt time.Time) error {
	_, err := s.put(ctx, key, "", payload, fetchedAt, 0, false)
	return err
}

// PutWithGen is Put guarded by a generation observed before the value was
// read from its source. If the key was invalidated since, the value is
// dropped and false is returned.
func (s *Store) PutWithGen(ctx context.Context, key string, payload []byte, fetchedAt time.Time, observedGen uint64) (bool, error) {
	return s.put(ctx, key, "", payload, fetchedAt, observedGen, true)
}

// MarkLoading records a fetch for key. When one is already in flight it
// returns that flight and false, and nothing changes.
func (s *Store) MarkLoading(ctx context.Context, key, requestID string) (Flight, bool) {
	if s.closed.Load() {
		return Flight{}, false
	}
	st := s.lock(key, true)
	if st.inflight != "" {
		f := Flight{ID: st.inflight, Gen: st.flightGen}
		st.mu.Unlock()
		return f, false
	}
	g := s.snapshotGen(ctx, key)
	st.present = true
	st.inflight = requestID
	st.flightGen = g
	st.status = StatusLoading
	st.err = nil
	st.lastRef = s.now()
	s.release(ctx, key, st, true)
	return Flight{ID: requestID, Gen: g}, true
}

// MarkError records a failed fetch. The previous value is kept.
func (s *Store) MarkError(ctx context.Context, key string, err error) {
	s.fail(ctx, key, "", err)
}

// Invalidate marks key stale without dropping its value and fences any
// fetch currently in flight for it.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	_, err := s.invalidate(ctx, s.existing(key), key)
	return err
}

// InvalidatePrefix invalidates every key starting with prefix and returns
// the keys it touched.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) ([]string, error) {
	return s.invalidate(ctx, s.withPrefix(prefix), prefix)
}

// Evict removes the entry and its stored value. Subscriptions survive and
// observe an absent entry.
func (s *Store) Evict(ctx context.Context, key string) error {
	_, err := s.evict(ctx, key, "explicit", nil)
	return err
}

// SnapshotGen returns the current generation of key, for use with PutWithGen.
func (s *Store) SnapshotGen(ctx context.Context, key string) uint64 {
	return s.snapshotGen(ctx, key)
}

// Observed reports whether key has at least one subscriber.
func (s *Store) Observed(key string) bool {
	st := s.lock(key, false)
	if st == nil {
		return false
	}
	n := len(st.subs)
	st.mu.Unlock()
	return n > 0
}

// Keys returns the keys that currently hold an entry, sorted.
func (s *Store) Keys() []string {
	var out []string
	for _, k := range s.withPrefix("") {
		st := s.lock(k, false)
		if st == nil {
			continue
		}
		if st.present {
			out = append(out, k)
		}
		st.mu.Unlock()
	}
	return out
}

// OnEvict registers fn to run after an entry is evicted.
func (s *Store) OnEvict(fn func(key string)) {
	s.mu.Lock()
	s.onEvict = append(s.onEvict, fn)
	s.mu.Unlock()
}

// Close stops the sweeper, evicts every entry and closes the generation
// store and the provider.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.closeWg.Wait()
			s.ticker.Stop()
		}
		for _, k := range s.withPrefix("") {
			_, _ = s.evict(ctx, k, "close", nil)
		}
		s.closed.Store(true)
		err = errors.Join(s.gen.Close(ctx), s.provider.Close(ctx))
	})
	return err
}

// --- internals ---

// lock returns key's state with its mutex held, creating it when create is
// set; nil when absent and !create.
func (s *Store) lock(key string, create bool) *keyState {
	for {
		s.mu.Lock()
		st, ok := s.keys[key]
		if !ok {
			if !create {
				s.mu.Unlock()
				return nil
			}
			st = &keyState{lastRef: s.now()}
			s.keys[key] = st
		}
		s.mu.Unlock()

		st.mu.Lock()
		if !st.removed {
			return st
		}
		st.mu.Unlock()
	}
}

// removeLocked drops st from the key map. st.mu must be held.
func (s *Store) removeLocked(key string, st *keyState) {
	s.mu.Lock()
	if s.keys[key] == st {
		delete(s.keys, key)
	}
	s.mu.Unlock()
	st.removed = true
}

// dropIfEmpty removes a state that holds nothing and has no subscribers.
// st.mu must be held.
func (s *Store) dropIfEmpty(key string, st *keyState) {
	if !st.present && st.inflight == "" && len(st.subs) == 0 {
		s.removeLocked(key, st)
	}
}

// release queues a notification (when asked and someone listens), unlocks
// st and drains the key's dispatcher if this goroutine owns it.
func (s *Store) release(ctx context.Context, key string, st *keyState, notify bool) {
	drain := false
	if notify && len(st.subs) > 0 {
		e, ok := s.snapshot(ctx, key, st)
		subs := make([]*Subscription, 0, len(st.subs))
		for _, sub := range st.subs {
			subs = append(subs, sub)
		}
		sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
		drain = st.disp.enqueue(func() {
			for _, sub := range subs {
				sub.deliver(e, ok)
			}
		})
	}
	st.mu.Unlock()
	if drain {
		st.disp.drain()
	}
}

func (s *Store) storageKey(key string) string {
	// isolate by namespace
	return "entry:" + s.ns + ":" + key
}

// snapshot copies st into an Entry, loading the value from the provider.
// Bytes that are missing, corrupt or from another generation are dropped.
// st.mu must be held.
func (s *Store) snapshot(ctx context.Context, key string, st *keyState) (Entry, bool) {
	if !st.present {
		return Entry{Key: key}, false
	}
	var payload []byte
	if st.hasValue {
		var ok bool
		payload, ok = s.loadValue(ctx, key, st)
		if !ok {
			st.hasValue = false
			if st.status == StatusSuccess {
				st.status = StatusIdle
			}
		}
	}
	return Entry{
		Key:        key,
		Status:     st.status,
		Payload:    payload,
		Err:        st.err,
		FetchedAt:  st.fetchedAt,
		StaleAfter: st.staleAfter,
		InflightID: st.inflight,
		Generation: st.valueGen,
		hasValue:   st.hasValue,
	}, true
}

func (s *Store) loadValue(ctx context.Context, key string, st *keyState) ([]byte, bool) {
	sk := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, sk)
	if err != nil {
		// transport trouble is not proof the value is gone
		s.log.Warn("provider get failed", Fields{"key": key, "err": err})
		return nil, true
	}
	if !ok {
		s.hooks.SelfHeal(sk, "missing")
		return nil, false
	}
	f, err := wire.Decode(raw)
	if err != nil {
		_ = s.provider.Del(ctx, sk) // self-heal corrupt
		s.hooks.SelfHeal(sk, "corrupt")
		return nil, false
	}
	if f.Gen != st.valueGen {
		_ = s.provider.Del(ctx, sk)
		s.hooks.SelfHeal(sk, "gen_mismatch")
		return nil, false
	}
	p := make([]byte, len(f.Payload))
	copy(p, f.Payload)
	return p, true
}

func (s *Store) write(ctx context.Context, key string, g uint64, payload []byte, fetchedAt time.Time) error {
	sk := s.storageKey(key)
	raw := wire.Encode(wire.Frame{Gen: g, FetchedAt: fetchedAt, Payload: payload})
	ok, err := s.provider.Set(ctx, sk, raw, s.computeSetCost(sk, raw), s.valueTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk)
		s.log.Debug("value rejected by provider (pressure)", Fields{"key": key})
		return ErrProviderRejected
	}
	return nil
}

// put commits a value. requestID, when set, must match the flight in
// progress; fenced enables the generation check.
func (s *Store) put(ctx context.Context, key, requestID string, payload []byte, fetchedAt time.Time, observedGen uint64, fenced bool) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	st := s.lock(key, true)
	if requestID != "" && st.inflight != requestID {
		// the flight was cut short by an eviction
		s.dropIfEmpty(key, st)
		st.mu.Unlock()
		s.hooks.ResultFenced(key, requestID)
		return false, nil
	}

	cur := s.snapshotGen(ctx, key)
	if fenced && cur != observedGen {
		st.inflight = ""
		if st.status == StatusLoading {
			st.status = st.restingStatus()
		}
		s.release(ctx, key, st, true)
		s.hooks.ResultFenced(key, requestID)
		s.log.Debug("fetch result dropped (gen mismatch)", Fields{"key": key, "obs": observedGen, "gen": cur})
		return false, nil
	}

	err := s.write(ctx, key, cur, payload, fetchedAt)
	st.present = true
	st.inflight = ""
	st.lastRef = s.now()
	if err != nil {
		st.status = StatusError
		st.err = err
		s.release(ctx, key, st, true)
		return false, err
	}
	st.status = StatusSuccess
	st.err = nil
	st.hasValue = true
	st.valueGen = cur
	st.fetchedAt = fetchedAt
	st.staleAfter = fetchedAt.Add(s.staleTime)
	s.release(ctx, key, st, true)
	return true, nil
}

// complete commits the result of flight f.
func (s *Store) complete(ctx context.Context, key string, f Flight, payload []byte, fetchedAt time.Time) (bool, error) {
	return s.put(ctx, key, f.ID, payload, fetchedAt, f.Gen, true)
}

func (s *Store) fail(ctx context.Context, key, requestID string, err error) {
	if s.closed.Load() {
		return
	}
	st := s.lock(key, true)
	if requestID != "" && st.inflight != requestID {
		s.dropIfEmpty(key, st)
		st.mu.Unlock()
		return
	}
	st.present = true
	st.status = StatusError
	st.err = err
	st.inflight = ""
	s.release(ctx, key, st, true)
}

func (s *Store) invalidate(ctx context.Context, keys []string, label string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sks := make([]string, len(keys))
	for i, k := range keys {
		sks[i] = s.storageKey(k)
	}
	// bump first: a flight finishing from here on sees a new generation
	_, bumpErr := s.gen.BumpMany(ctx, sks)
	if bumpErr != nil {
		s.hooks.GenBumpError(label, bumpErr)
		s.log.Error("gen bump error", Fields{"key": label, "err": bumpErr})
	}

	now := s.now()
	touched := make([]string, 0, len(keys))
	for _, k := range keys {
		st := s.lock(k, false)
		if st == nil {
			continue
		}
		if !st.present {
			st.mu.Unlock()
			continue
		}
		st.staleAfter = now
		touched = append(touched, k)
		s.release(ctx, k, st, true)
	}
	s.log.Debug("invalidated", Fields{"key": label, "count": len(touched)})

	if bumpErr != nil {
		return touched, &InvalidateError{Key: label, BumpErr: bumpErr}
	}
	return touched, nil
}

// evict removes key and reports whether it did. cond, when non-nil, is
// re-checked under the key lock.
func (s *Store) evict(ctx context.Context, key, reason string, cond func(*keyState) bool) (bool, error) {
	st := s.lock(key, false)
	if st == nil {
		return false, nil
	}
	if cond != nil && !cond(st) {
		st.mu.Unlock()
		return false, nil
	}

	sk := s.storageKey(key)
	_, bumpErr := s.gen.Bump(ctx, sk)
	delErr := s.provider.Del(ctx, sk)

	wasPresent := st.present
	st.reset()
	st.lastRef = s.now()
	if len(st.subs) == 0 {
		s.removeLocked(key, st)
	}
	s.release(ctx, key, st, wasPresent)

	if wasPresent {
		s.hooks.Evicted(key, reason)
		s.log.Debug("evicted", Fields{"key": key, "reason": reason})
		s.mu.Lock()
		fns := append([]func(string){}, s.onEvict...)
		s.mu.Unlock()
		for _, fn := range fns {
			fn(key)
		}
	}

	if bumpErr != nil || delErr != nil {
		if bumpErr != nil {
			s.hooks.GenBumpError(key, bumpErr)
		}
		return true, &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	return true, nil
}

func (s *Store) existing(key string) []string {
	s.mu.Lock()
	_, ok := s.keys[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return []string{key}
}

func (s *Store) withPrefix(prefix string) []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

func (s *Store) snapshotGen(ctx context.Context, key string) uint64 {
	g, err := s.gen.Snapshot(ctx, s.storageKey(key))
	if err != nil {
		// Conservative: 0 makes fenced writes skip; the next read refetches
		s.hooks.GenSnapshotError(key, err)
		s.log.Warn("gen snapshot error", Fields{"key": key, "err": err})
		return 0
	}
	return g
}

func (s *Store) cleanupLoop() {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// sweep evicts entries nobody has referenced within the retention window.
func (s *Store) sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.retention)
	unreferenced := func(st *keyState) bool {
		return len(st.subs) == 0 && st.inflight == "" && st.lastRef.Before(cutoff)
	}
	removed := 0
	for _, k := range s.withPrefix("") {
		st := s.lock(k, false)
		if st == nil {
			continue
		}
		candidate := unreferenced(st)
		st.mu.Unlock()
		if !candidate {
			continue
		}
		ok, err := s.evict(ctx, k, "retention", unreferenced)
		if err != nil {
			s.log.Warn("retention evict failed", Fields{"key": k, "err": err})
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		s.log.Debug("retention sweep removed entries", Fields{"removed": removed})
	}
	return removed
}
