package logging

import (
	"log/slog"
	"slices"
)

// handlerState is the WithAttrs/WithGroup bookkeeping shared by the journal
// and buffer handlers. Values are copied on every derivation so handlers can
// be shared between goroutines.
type handlerState struct {
	attrs  []slog.Attr
	groups []string
}

func (s handlerState) withAttrs(attrs []slog.Attr) handlerState {
	return handlerState{
		attrs:  append(slices.Clip(s.attrs), attrs...),
		groups: s.groups,
	}
}

func (s handlerState) withGroup(name string) handlerState {
	if name == "" {
		return s
	}
	return handlerState{
		attrs:  s.attrs,
		groups: append(slices.Clip(s.groups), name),
	}
}

// each visits handler attributes first, then those of r. The module
// attribute is reported separately so it never lands under a group.
func (s handlerState) each(r slog.Record, module func(string), visit func(groups []string, a slog.Attr)) {
	fn := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		if a.Key == "module" && module != nil {
			module(a.Value.String())
			return true
		}
		visit(s.groups, a)
		return true
	}
	for _, a := range s.attrs {
		fn(a)
	}
	r.Attrs(fn)
}

// levelToString converts slog.Level to a lowercase string.
func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
