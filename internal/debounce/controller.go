// Package debounce turns chattering button edges into one deferred action
// per press.
//
// A Controller is a small state machine driven by two events: Interrupt, from
// the line's edge callback, and TimerExpired, from its one-shot timer. The
// first edge masks the line, queues the button's action and starts the
// debounce window; the line is unmasked when the window ends. Both events may
// arrive on different goroutines and are serialized by the controller's mutex.
package debounce

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/metrics"
	"github.com/smazurov/boardnode/internal/worker"
)

// DefaultWindow is the suppression period after an accepted press.
const DefaultWindow = 300 * time.Millisecond

// State of a controller.
type State int

// Controller states.
const (
	Idle State = iota
	Suppressed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Suppressed:
		return "suppressed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives a state transition.
type Event int

// Controller events.
const (
	Interrupt Event = iota
	TimerExpired
)

func (e Event) String() string {
	switch e {
	case Interrupt:
		return "interrupt"
	case TimerExpired:
		return "timer_expired"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Line is the interrupt line a controller masks. *gpio.IRQLine satisfies it.
type Line interface {
	Mask()
	Unmask()
}

// Enqueuer accepts deferred work without blocking. *worker.Queue satisfies it.
type Enqueuer interface {
	Enqueue(worker.Item) error
}

type transition struct {
	next   State
	action func(*Controller)
}

// transitions is indexed by [state][event]. Closed absorbs everything. It is
// filled in init because the actions refer back to handle.
var transitions [3][2]transition

func init() {
	transitions = [3][2]transition{
		Idle: {
			Interrupt:    {next: Suppressed, action: (*Controller).accept},
			TimerExpired: {next: Idle},
		},
		Suppressed: {
			Interrupt:    {next: Suppressed, action: (*Controller).suppress},
			TimerExpired: {next: Idle, action: (*Controller).release},
		},
		Closed: {
			Interrupt:    {next: Closed},
			TimerExpired: {next: Closed},
		},
	}
}

// Config configures a Controller.
type Config struct {
	Button string
	Action worker.Action
	Line   Line
	Queue  Enqueuer
	// Window defaults to DefaultWindow.
	Window time.Duration
	// Clock defaults to the wall clock.
	Clock Clock
	Bus   *events.Bus
	// Logger for controller operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Controller debounces a single button.
type Controller struct {
	button string
	action worker.Action
	line   Line
	queue  Enqueuer
	clock  Clock
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	window  time.Duration
	timer   Timer
	presses uint64
	bounces uint64
	lost    uint64
}

// New creates an idle controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Line == nil || cfg.Queue == nil {
		return nil, errors.New("debounce: line and queue are required")
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("debounce: negative window %s", cfg.Window)
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		button: cfg.Button,
		action: cfg.Action,
		line:   cfg.Line,
		queue:  cfg.Queue,
		clock:  cfg.Clock,
		bus:    cfg.Bus,
		logger: cfg.Logger,
		state:  Idle,
		window: cfg.Window,
	}, nil
}

// Interrupt is called from the line's edge callback.
func (c *Controller) Interrupt() { c.handle(Interrupt) }

// TimerExpired is called when the debounce window ends.
func (c *Controller) TimerExpired() { c.handle(TimerExpired) }

func (c *Controller) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := transitions[c.state][ev]
	if t.action != nil {
		t.action(c)
	}
	if t.next != c.state {
		c.logger.Debug("Debounce transition",
			"button", c.button,
			"event", ev.String(),
			"from", c.state.String(),
			"to", t.next.String())
	}
	c.state = t.next
}

// accept masks the line, queues the button's action and starts the window.
func (c *Controller) accept() {
	c.line.Mask()
	c.presses++
	metrics.IncButtonPress(c.button)

	item := worker.Item{Button: c.button, Action: c.action, Raised: time.Now()}
	if err := c.queue.Enqueue(item); err != nil {
		c.lost++
		c.logger.Warn("Button press lost", "button", c.button, "error", err)
	}

	if c.timer == nil {
		c.timer = c.clock.AfterFunc(c.window, c.TimerExpired)
		return
	}
	c.timer.Reset(c.window)
}

// suppress counts an edge that slipped through before the mask took effect.
func (c *Controller) suppress() {
	c.bounces++
	metrics.IncButtonBounce(c.button)
	c.bus.Publish(events.BounceSuppressedEvent{
		Button:    c.button,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (c *Controller) release() {
	c.line.Unmask()
}

// SetWindow changes the debounce window. It applies from the next press.
func (c *Controller) SetWindow(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("debounce window must be positive, got %s", d)
	}
	c.mu.Lock()
	c.window = d
	c.mu.Unlock()
	return nil
}

// Window returns the current debounce window.
func (c *Controller) Window() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops the timer and leaves the line masked. Events arriving after
// Close have no effect.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.line.Mask()
	c.state = Closed
}

// Info is a snapshot of a controller for status reporting.
type Info struct {
	Button   string `json:"button"`
	Action   string `json:"action"`
	State    string `json:"state"`
	WindowMS int64  `json:"window_ms"`
	Presses  uint64 `json:"presses"`
	Bounces  uint64 `json:"bounces"`
	Lost     uint64 `json:"lost"`
}

// Info returns a snapshot of the controller.
func (c *Controller) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		Button:   c.button,
		Action:   c.action.String(),
		State:    c.state.String(),
		WindowMS: c.window.Milliseconds(),
		Presses:  c.presses,
		Bounces:  c.bounces,
		Lost:     c.lost,
	}
}
