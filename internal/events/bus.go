package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. A nil bus drops the event,
// so components can be built without one in tests.
// Usage: bus.Publish(LEDValueChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case LEDValueChangedEvent:
		event.Publish(b.dispatcher, e)
	case ButtonPressedEvent:
		event.Publish(b.dispatcher, e)
	case SpeakerChangedEvent:
		event.Publish(b.dispatcher, e)
	case BounceSuppressedEvent:
		event.Publish(b.dispatcher, e)
	case BoardStateEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e ButtonPressedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(LEDValueChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ButtonPressedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SpeakerChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BounceSuppressedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BoardStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
