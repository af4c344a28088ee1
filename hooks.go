package querycache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on fetch and
// notification paths. Wrap with hooks/async when in doubt.
type Hooks interface {
	// A fetch was started for key under requestID.
	FetchStarted(key, requestID string)

	// A caller wanted a fetch but one was already in flight (requestID is the
	// flight it joined).
	FetchDeduped(key, requestID string)

	// A fetch failed; the entry keeps its previous value.
	FetchFailed(key string, err error)

	// A fetch result was dropped because the key was invalidated while the
	// fetch was in flight.
	ResultFenced(key, requestID string)

	// A stored value was dropped on read.
	// reason ∈ {"corrupt", "gen_mismatch", "missing"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors (snapshot or bump).
	GenSnapshotError(key string, err error)
	GenBumpError(key string, err error)

	// An entry was removed. reason ∈ {"explicit", "retention", "close"}
	Evicted(key, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) FetchStarted(string, string)    {}
func (NopHooks) FetchDeduped(string, string)    {}
func (NopHooks) FetchFailed(string, error)      {}
func (NopHooks) ResultFenced(string, string)    {}
func (NopHooks) SelfHeal(string, string)        {}
func (NopHooks) ProviderSetRejected(string)     {}
func (NopHooks) GenSnapshotError(string, error) {}
func (NopHooks) GenBumpError(string, error)     {}
func (NopHooks) Evicted(string, string)         {}
