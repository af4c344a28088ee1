package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/querycache"
)

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	l.Debug("hidden", querycache.Fields{"key": "k"})
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	l.Warn("fetch failed", querycache.Fields{"key": "task:7", "err": errors.New("timeout")})
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["level"] != "warn" || line["message"] != "fetch failed" || line["key"] != "task:7" || line["err"] != "timeout" {
		t.Fatalf("line = %v", line)
	}
}
