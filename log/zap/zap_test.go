package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/querycache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("fetch failed", querycache.Fields{"key": "task:1", "err": errors.New("boom")})
	l.Debug("quiet", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	e := entries[0]
	if e.Message != "fetch failed" || e.Level != zapcore.WarnLevel || e.LoggerName != "querycache" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	ctx := e.ContextMap()
	if ctx["key"] != "task:1" || ctx["err"] != "boom" {
		t.Fatalf("fields = %v", ctx)
	}
	if len(entries[1].Context) != 0 {
		t.Fatalf("nil fields should add no context")
	}
}
