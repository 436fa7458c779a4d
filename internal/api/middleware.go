package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/boardnode/internal/logging"
)

// streamPaths are long-lived SSE endpoints. Their completion is logged at
// debug so a dashboard reconnecting all day does not flood the journal.
var streamPaths = map[string]bool{
	"/api/events":      true,
	"/api/logs/stream": true,
}

// HTTPLoggingMiddleware logs every API request once it completes. The level
// follows the outcome: errors at error, client faults at warn, preflights
// and streams at debug, the rest at info.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	u := ctx.URL()
	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", ctx.Method()),
		slog.String("path", u.Path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if q := redactQuery(u.Query()); q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	if op := ctx.Operation(); op != nil {
		attrs = append(attrs, slog.String("operation", op.OperationID))
	}

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	case ctx.Method() == http.MethodOptions, streamPaths[u.Path]:
		level = slog.LevelDebug
	}
	logging.GetLogger("http").LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// redactQuery encodes the query with the auth credential masked.
func redactQuery(q map[string][]string) string {
	if len(q) == 0 {
		return ""
	}
	var parts []string
	for k, vs := range q {
		for _, v := range vs {
			if strings.EqualFold(k, "auth") {
				v = "REDACTED"
			}
			parts = append(parts, k+"="+v)
		}
	}
	slices.Sort(parts)
	return strings.Join(parts, "&")
}
