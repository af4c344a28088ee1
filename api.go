package querycache

import (
	"time"

	gen "github.com/unkn0wn-root/querycache/genstore"
	pr "github.com/unkn0wn-root/querycache/provider"
)

// SetCostFunc computes the provider cost of a stored value (used by
// cost-aware providers such as Ristretto).
type SetCostFunc func(storageKey string, raw []byte) int64

// StoreOptions tune a Store.
// Only Namespace and Provider are required; others have sensible defaults.
type StoreOptions struct {
	// Required
	Namespace string // logical namespace for storage keys, e.g. "tasks"
	Provider  pr.Provider

	GenStore       gen.GenStore     // nil => LocalGenStore (in-process)
	Logger         Logger           // nil => NopLogger
	Hooks          Hooks            // nil => NopHooks
	StaleTime      time.Duration    // 0 => 5m
	Retention      time.Duration    // unreferenced entries live this long; 0 => 5m
	SweepInterval  time.Duration    // 0 => 1m; < 0 disables the sweeper
	GenRetention   time.Duration    // local generations; 0 => 24h
	ValueTTL       time.Duration    // provider TTL for stored values; 0 => no expiry
	ComputeSetCost SetCostFunc      // default 1
	Now            func() time.Time // nil => time.Now
}

// ClientOptions tune the query executor.
type ClientOptions struct {
	FetchTimeout        time.Duration // per fetch; 0 => none (the fetch function owns timeouts)
	MaxFenceRetries     int           // refetches after an invalidated result; 0 => 3, < 0 => none
	PrefetchConcurrency int           // 0 => 4
	NewRequestID        func() string // nil => uuid
}

const (
	defaultStaleTime     = 5 * time.Minute
	defaultRetention     = 5 * time.Minute
	defaultSweep         = time.Minute
	defaultGenRetention  = 24 * time.Hour
	defaultFenceRetries  = 3
	defaultPrefetchLimit = 4
)
