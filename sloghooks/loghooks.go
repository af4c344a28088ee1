// Package sloghooks logs cache events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/querycache"
	"github.com/unkn0wn-root/querycache/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	FetchEvery    uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	fetchCtr    atomic.Uint64
}

var _ querycache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Redact(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchStarted(key, requestID string) {
	if h.l == nil || !sample(h.opts.FetchEvery, &h.fetchCtr) {
		return
	}
	h.l.Debug("querycache.fetch_started",
		"key", h.redact(key),
		"request_id", requestID)
}

func (h *Hooks) FetchDeduped(key, requestID string) {
	if h.l == nil {
		return
	}
	h.l.Debug("querycache.fetch_deduped",
		"key", h.redact(key),
		"request_id", requestID)
}

func (h *Hooks) FetchFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("querycache.fetch_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ResultFenced(key, requestID string) {
	if h.l == nil {
		return
	}
	h.l.Info("querycache.result_fenced",
		"key", h.redact(key),
		"request_id", requestID)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("querycache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("querycache.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("querycache.gen_snapshot_error",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) GenBumpError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("querycache.gen_bump_error",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Evicted(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Debug("querycache.evicted",
		"key", h.redact(key),
		"reason", reason)
}
