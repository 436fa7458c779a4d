package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// Identifier is the SYSLOG_IDENTIFIER of every journal entry.
const Identifier = "boardnode"

// JournalHandler is a slog.Handler that sends records to the systemd journal
// as structured fields. Attribute keys become upper-case field names, so
// `logger.With("button", "button1")` is searchable as BUTTON=button1.
type JournalHandler struct {
	level slog.Leveler
	state handlerState
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := journalPriority(r.Level)
	fields := map[string]string{
		"PRIORITY":          strconv.Itoa(int(priority)),
		"SYSLOG_IDENTIFIER": Identifier,
	}
	h.state.each(r,
		func(module string) { fields["MODULE"] = module },
		func(groups []string, a slog.Attr) { journalFields(fields, groups, a) },
	)

	if err := journal.Send(r.Message, priority, fields); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send to journal: %v\n", err)
		return err
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{level: h.level, state: h.state.withAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	return &JournalHandler{level: h.level, state: h.state.withGroup(name)}
}

func journalPriority(level slog.Level) journal.Priority {
	switch levelToString(level) {
	case "error":
		return journal.PriErr
	case "warn":
		return journal.PriWarning
	case "info":
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalFields flattens a into fields. Journal field names are upper case
// and groups are joined with underscores.
func journalFields(fields map[string]string, groups []string, a slog.Attr) {
	key := strings.ToUpper(strings.Join(append(groups[:len(groups):len(groups)], a.Key), "_"))

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		sub := append(groups[:len(groups):len(groups)], a.Key)
		for _, ga := range v.Group() {
			journalFields(fields, sub, ga)
		}
	case slog.KindInt64:
		fields[key] = strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		fields[key] = strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		fields[key] = strconv.FormatBool(v.Bool())
	case slog.KindTime:
		fields[key] = v.Time().Format(time.RFC3339Nano)
	default:
		// Strings, durations, errors and anything with a String method
		fields[key] = v.String()
	}
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
