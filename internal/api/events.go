package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/boardnode/internal/events"
)

// SourceSnapshot marks the LED event sent when an SSE client connects.
const SourceSnapshot = "snapshot"

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time board events: LED value changes, applied button presses, suppressed bounces, speaker changes and lifecycle state",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"led-value-changed": events.LEDValueChangedEvent{},
		"button-pressed":    events.ButtonPressedEvent{},
		"bounce-suppressed": events.BounceSuppressedEvent{},
		"speaker-changed":   events.SpeakerChangedEvent{},
		"board-state":       events.BoardStateEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.LEDValueChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ButtonPressedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.BounceSuppressedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SpeakerChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.BoardStateEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Start the client off with the current value
		if v, err := s.board.Bank().Decode(); err == nil {
			if err := send.Data(events.LEDValueChangedEvent{
				Value:     v,
				Previous:  v,
				Source:    SourceSnapshot,
				Mode:      "absolute",
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
