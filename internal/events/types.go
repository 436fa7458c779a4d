package events

// Event type constants for kelindar/event.
const (
	TypeLEDValueChanged uint32 = iota + 1
	TypeButtonPressed
	TypeSpeakerChanged
	TypeBounceSuppressed
	TypeBoardState
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// LEDValueChangedEvent is published after every LED bank mutation that
// changed at least one line.
type LEDValueChangedEvent struct {
	Value     uint8  `json:"value" example:"6" doc:"LED bank value after the change (0-63)"`
	Previous  uint8  `json:"previous" example:"5" doc:"LED bank value before the change"`
	Source    string `json:"source" example:"button1" doc:"What caused the change: device, button1, button2, api"`
	Mode      string `json:"mode" example:"absolute" doc:"Write mode applied: absolute, set, clear"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LEDValueChangedEvent.
func (e LEDValueChangedEvent) Type() uint32 { return TypeLEDValueChanged }

// ButtonPressedEvent is published when a debounced press has been applied
// to the LED bank.
type ButtonPressedEvent struct {
	Button    string `json:"button" example:"button1" doc:"Button name"`
	Action    string `json:"action" example:"increment" doc:"Deferred action executed"`
	Value     uint8  `json:"value" example:"6" doc:"LED bank value after the action"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ButtonPressedEvent.
func (e ButtonPressedEvent) Type() uint32 { return TypeButtonPressed }

// BounceSuppressedEvent is published when an edge arrives while its button
// is still inside the debounce window.
type BounceSuppressedEvent struct {
	Button    string `json:"button" example:"button2" doc:"Button name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BounceSuppressedEvent.
func (e BounceSuppressedEvent) Type() uint32 { return TypeBounceSuppressed }

// SpeakerChangedEvent is published when the speaker line is written.
type SpeakerChangedEvent struct {
	On        bool   `json:"on" example:"true" doc:"Whether the speaker line is driven high"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SpeakerChangedEvent.
func (e SpeakerChangedEvent) Type() uint32 { return TypeSpeakerChanged }

// BoardStateEvent reports board lifecycle transitions.
type BoardStateEvent struct {
	State     string `json:"state" example:"ready" doc:"Lifecycle state: ready, stopping, stopped"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BoardStateEvent.
func (e BoardStateEvent) Type() uint32 { return TypeBoardState }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
	Line       string         `json:"line" example:"2025-01-09T10:30:00.123Z [INFO] [board] Board ready" doc:"Entry rendered as one display line"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
