package querycache

import "time"

// Status is the lifecycle state of a cache entry.
type Status uint8

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is a point-in-time copy of one cache key.
//
// Payload is the encoded value as produced by the query's codec. Every Entry
// handed out by the Store carries its own copy, so callers may keep or decode
// it without touching cache state.
type Entry struct {
	Key        string
	Status     Status
	Payload    []byte
	Err        error // set only when Status == StatusError
	FetchedAt  time.Time
	StaleAfter time.Time
	InflightID string // request id of the fetch in flight, "" if none
	Generation uint64 // invalidation epoch the payload was fetched under

	hasValue bool
}

// HasValue reports whether a successfully fetched value is held.
func (e Entry) HasValue() bool { return e.hasValue }

// Fetching reports whether a fetch is in flight for the key.
func (e Entry) Fetching() bool { return e.InflightID != "" }

// Stale reports whether the held value is past its staleness deadline.
// An entry without a value is never stale, it is empty.
func (e Entry) Stale(now time.Time) bool {
	return e.hasValue && !now.Before(e.StaleAfter)
}

// NeedsFetch is the single re-fetch predicate: nothing in flight and
// either no value or a stale one.
func (e Entry) NeedsFetch(now time.Time) bool {
	if e.InflightID != "" {
		return false
	}
	return !e.hasValue || !now.Before(e.StaleAfter)
}

func (e Entry) clone() Entry {
	if e.Payload != nil {
		p := make([]byte, len(e.Payload))
		copy(p, e.Payload)
		e.Payload = p
	}
	return e
}

// Flight identifies one fetch: its request id and the generation observed
// when it started. A result is committed only if the generation is unchanged.
type Flight struct {
	ID  string
	Gen uint64
}
