package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/boardnode/internal/api/models"
	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/logging"
)

// LogStreamRequest filters the log stream.
type LogStreamRequest struct {
	Module string `query:"module" example:"debounce" doc:"Only stream entries from this module"`
}

// registerLogRoutes registers the log level and log streaming endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-log-levels",
		Method:      http.MethodGet,
		Path:        "/api/logs/levels",
		Summary:     "Log Levels",
		Description: "Effective level of every module logger, including changes applied by a config reload",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.LogLevelsResponse, error) {
		return &models.LogLevelsResponse{Body: models.LogLevelsData{Levels: logging.Levels()}}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered history first, then new entries.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamRequest, send sse.Sender) {
		keep := func(module string) bool {
			return input.Module == "" || input.Module == module
		}

		// Subscribe before replaying history so nothing logged in between is lost
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				if !keep(entry.Module) {
					continue
				}
				if err := send.Data(events.LogEntryEvent{
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
					Line:       logging.FormatLogLine(entry),
				}); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if e, ok := ev.(events.LogEntryEvent); ok && !keep(e.Module) {
					continue
				}
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
