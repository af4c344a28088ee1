// Package zerolog adapts a zerolog.Logger to querycache.Logger.
package zerolog

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/querycache"
)

var _ querycache.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func (z Logger) Debug(msg string, f querycache.Fields) { write(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f querycache.Fields)  { write(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f querycache.Fields)  { write(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f querycache.Fields) { write(z.L.Error(), msg, f) }

func write(ev *zerolog.Event, msg string, f querycache.Fields) {
	if ev == nil {
		return // level disabled
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			ev = ev.AnErr(k, err)
			continue
		}
		ev = ev.Interface(k, f[k])
	}
	ev.Msg(msg)
}
