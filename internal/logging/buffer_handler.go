package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// LogCallback is called when a new log entry is written.
// Used to publish log events without creating import cycles.
type LogCallback func(entry LogEntry)

// BufferHandler is a slog.Handler that writes to the package ring buffer
// and calls the registered LogCallback for each entry. Both are looked up on
// every record, so handlers built before Initialize start buffering as soon
// as a buffer exists.
type BufferHandler struct {
	level slog.Leveler
	state handlerState
}

// NewBufferHandler creates a buffer handler gated by level.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelToString(r.Level),
		Module:     "app",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	h.state.each(r,
		func(module string) { entry.Module = module },
		func(groups []string, a slog.Attr) { flattenAttr(entry.Attributes, groups, a) },
	)

	mutex.RLock()
	buffer, callback := logBuffer, logCallback
	mutex.RUnlock()

	if buffer != nil {
		buffer.Write(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{level: h.level, state: h.state.withAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{level: h.level, state: h.state.withGroup(name)}
}

// flattenAttr stores a under a dot-joined key. Values stay JSON friendly:
// errors, times and durations become strings.
func flattenAttr(attrs map[string]any, groups []string, a slog.Attr) {
	key := strings.Join(append(groups[:len(groups):len(groups)], a.Key), ".")

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		sub := append(groups[:len(groups):len(groups)], a.Key)
		for _, ga := range v.Group() {
			flattenAttr(attrs, sub, ga)
		}
	case slog.KindTime:
		attrs[key] = v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = v.Any()
		}
	default:
		attrs[key] = v.Any()
	}
}

// FormatLogLine renders entry as "<time> [LEVEL] [module] message k=v ...",
// with attributes sorted by key.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano), strings.ToUpper(entry.Level), entry.Module, entry.Message)

	keys := make([]string, 0, len(entry.Attributes))
	for k := range entry.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
