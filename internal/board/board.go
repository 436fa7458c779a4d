// Package board assembles the LED bank, the speaker and the two buttons on
// top of a GPIO chip.
//
// New acquires every resource in a fixed order and releases all of them if
// any step fails, so a failed start never leaves a line owned. Close tears
// down in the reverse direction of the data flow: button edges stop first,
// then the deferred queue, and the outputs are cleared and released last.
package board

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/boardnode/internal/debounce"
	"github.com/smazurov/boardnode/internal/device"
	"github.com/smazurov/boardnode/internal/errcode"
	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/gpio"
	"github.com/smazurov/boardnode/internal/led"
	"github.com/smazurov/boardnode/internal/speaker"
	"github.com/smazurov/boardnode/internal/worker"
)

// Consumer is the label attached to every requested line.
const Consumer = "boardnode"

// Line owners reported by the registry.
const (
	OwnerLEDs     = "leds"
	OwnerSpeaker  = "speaker"
	OwnerDebounce = "debounce"
)

// ErrUnknownButton is returned by Press for a name not in the pin table.
var ErrUnknownButton = errors.New("unknown button")

// Pin is one entry of the fixed pin table. Offsets are BCM numbers, which
// are the line offsets of gpiochip0 on a Raspberry Pi.
type Pin struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Role   string `json:"role"`
}

// Pin roles.
const (
	RoleLED     = "led"
	RoleButton  = "button"
	RoleSpeaker = "speaker"
)

// LEDPins lists the LED lines; index i carries bit i of the bank value.
var LEDPins = [led.NumLines]Pin{
	{Name: "GPIO_GREEN1", Offset: 27, Role: RoleLED},
	{Name: "GPIO_GREEN2", Offset: 22, Role: RoleLED},
	{Name: "GPIO_YELLOW1", Offset: 17, Role: RoleLED},
	{Name: "GPIO_YELLOW2", Offset: 11, Role: RoleLED},
	{Name: "GPIO_RED1", Offset: 10, Role: RoleLED},
	{Name: "GPIO_RED2", Offset: 9, Role: RoleLED},
}

// Button and speaker pins.
var (
	Button1Pin = Pin{Name: "button1", Offset: 2, Role: RoleButton}
	Button2Pin = Pin{Name: "button2", Offset: 3, Role: RoleButton}
	SpeakerPin = Pin{Name: "speaker", Offset: 4, Role: RoleSpeaker}
)

// Pins returns the whole pin table.
func Pins() []Pin {
	pins := make([]Pin, 0, led.NumLines+3)
	pins = append(pins, LEDPins[:]...)
	return append(pins, Button1Pin, Button2Pin, SpeakerPin)
}

// Options configures a Board.
type Options struct {
	// Chip is the GPIO backend (required). The board does not close it.
	Chip gpio.Chip
	// DebounceWindow defaults to debounce.DefaultWindow.
	DebounceWindow time.Duration
	// QueueSize defaults to worker.DefaultSize.
	QueueSize int
	// DrainOnClose runs queued button actions during Close instead of
	// discarding them.
	DrainOnClose bool
	// Clock drives the debounce timers. Defaults to the wall clock.
	Clock debounce.Clock
	Bus   *events.Bus
	// Logger for board operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Board owns every line and subsystem of the lab board.
type Board struct {
	chip    gpio.Chip
	lines   *gpio.Registry
	bank    *led.Bank
	speaker *speaker.Speaker
	devices *device.Registry
	queue   *worker.Queue
	buttons []*button
	bus     *events.Bus
	logger  *slog.Logger
	drain   bool

	closeOnce sync.Once
	closeErr  error
}

type button struct {
	pin    Pin
	action worker.Action
	irq    *gpio.IRQLine
	ctrl   atomic.Pointer[debounce.Controller]
}

// onEdge runs in interrupt context. Edges that arrive before the controller
// is attached are ignored.
func (b *button) onEdge(gpio.Edge) {
	if c := b.ctrl.Load(); c != nil {
		c.Interrupt()
	}
}

// New brings the board up: LED and speaker outputs, device registration,
// the deferred queue, and finally the button interrupts. On failure every
// resource acquired so far is released and the error carries the code of
// the failing step.
func New(opts Options) (_ *Board, err error) {
	if opts.Chip == nil {
		return nil, errors.New("board: chip is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Board{
		chip:    opts.Chip,
		lines:   gpio.NewRegistry(opts.Chip, logger.With("component", "gpio")),
		devices: device.NewRegistry(logger.With("component", "device")),
		bus:     opts.Bus,
		logger:  logger,
		drain:   opts.DrainOnClose,
	}
	defer func() {
		if err != nil {
			logger.Error("Board startup failed, rolling back",
				"error", err,
				"errno", errcode.Errno(err))
			if rbErr := b.shutdown(); rbErr != nil {
				logger.Warn("Rollback incomplete", "error", rbErr)
			}
		}
	}()

	var ledLines [led.NumLines]led.Pin
	for i, p := range LEDPins {
		l, reqErr := b.lines.RequestOutput(p.Offset, p.Name, OwnerLEDs, false)
		if reqErr != nil {
			return nil, reqErr
		}
		ledLines[i] = l
	}
	b.bank = led.NewBank(ledLines, b.bus, logger.With("component", "leds"))

	spkLine, err := b.lines.RequestOutput(SpeakerPin.Offset, SpeakerPin.Name, OwnerSpeaker, false)
	if err != nil {
		return nil, err
	}
	b.speaker = speaker.New(spkLine, b.bus, logger.With("component", "speaker"))

	if err := registerDevices(b.devices,
		device.NewLEDDevice(b.bank),
		device.NewSpeakerDevice(b.speaker),
	); err != nil {
		return nil, err
	}

	b.queue = worker.New(worker.Options{
		Size:    opts.QueueSize,
		Handler: b.execute,
		Logger:  logger.With("component", "worker"),
	})
	b.queue.Start()

	for _, bs := range []struct {
		pin    Pin
		action worker.Action
	}{
		{Button1Pin, worker.Increment},
		{Button2Pin, worker.Decrement},
	} {
		btn := &button{pin: bs.pin, action: bs.action}
		irq, reqErr := b.lines.RequestInterrupt(bs.pin.Offset, bs.pin.Name, OwnerDebounce, btn.onEdge)
		if reqErr != nil {
			return nil, reqErr
		}
		btn.irq = irq

		ctrl, ctrlErr := debounce.New(debounce.Config{
			Button: bs.pin.Name,
			Action: bs.action,
			Line:   irq,
			Queue:  b.queue,
			Window: opts.DebounceWindow,
			Clock:  opts.Clock,
			Bus:    b.bus,
			Logger: logger.With("component", "debounce", "button", bs.pin.Name),
		})
		if ctrlErr != nil {
			return nil, ctrlErr
		}
		btn.ctrl.Store(ctrl)
		b.buttons = append(b.buttons, btn)
	}

	logger.Info("Board ready",
		"chip", opts.Chip.Name(),
		"lines", b.lines.Owned(),
		"debounce_window", b.buttons[0].ctrl.Load().Window())
	b.publishState("ready")
	return b, nil
}

// registerDevices attempts every registration, so the speaker is still
// registered when the LED device fails, and joins the errors.
func registerDevices(reg *device.Registry, devs ...device.Device) error {
	var errs []error
	for _, d := range devs {
		if err := reg.Register(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// execute runs a deferred button action on the worker goroutine.
func (b *Board) execute(item worker.Item) error {
	var (
		v   uint8
		err error
	)
	switch item.Action {
	case worker.Increment:
		v, err = b.bank.Increment(item.Button)
	case worker.Decrement:
		v, err = b.bank.Decrement(item.Button)
	default:
		return fmt.Errorf("unknown action %s", item.Action)
	}
	if err != nil {
		return err
	}
	b.bus.Publish(events.ButtonPressedEvent{
		Button:    item.Button,
		Action:    item.Action.String(),
		Value:     v,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Close shuts the board down. It is safe to call more than once.
func (b *Board) Close() error {
	b.closeOnce.Do(func() {
		b.publishState("stopping")
		b.closeErr = b.shutdown()
		b.publishState("stopped")
		b.logger.Info("Board stopped")
	})
	return b.closeErr
}

// shutdown releases whatever New managed to acquire. Every step tolerates
// the resources of later steps never having been created.
func (b *Board) shutdown() error {
	var errs []error

	for _, btn := range b.buttons {
		if c := btn.ctrl.Load(); c != nil {
			c.Close()
		}
	}
	for _, pin := range []Pin{Button1Pin, Button2Pin} {
		if err := b.lines.Release(pin.Offset); err != nil {
			errs = append(errs, err)
		}
	}

	if b.queue != nil {
		b.queue.Stop(b.drain)
	}

	if b.bank != nil {
		if err := b.bank.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("clear leds: %w", err))
		}
	}
	if b.speaker != nil {
		if err := b.speaker.Off(); err != nil {
			errs = append(errs, fmt.Errorf("speaker off: %w", err))
		}
	}

	b.devices.Unregister(device.LEDs)
	b.devices.Unregister(device.Speaker)

	if err := b.lines.ReleaseAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b *Board) publishState(state string) {
	b.bus.Publish(events.BoardStateEvent{
		State:     state,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Bank returns the LED bank.
func (b *Board) Bank() *led.Bank { return b.bank }

// Speaker returns the speaker.
func (b *Board) Speaker() *speaker.Speaker { return b.speaker }

// Devices returns the device registry.
func (b *Board) Devices() *device.Registry { return b.devices }

// Lines returns the GPIO line registry.
func (b *Board) Lines() *gpio.Registry { return b.lines }

// SetDebounceWindow changes the window of both buttons.
func (b *Board) SetDebounceWindow(d time.Duration) error {
	for _, btn := range b.buttons {
		if err := btn.ctrl.Load().SetWindow(d); err != nil {
			return err
		}
	}
	b.logger.Info("Debounce window updated", "window", d)
	return nil
}

// Press simulates one press of the named button. Only the sim backend can
// inject edges.
func (b *Board) Press(name string) error {
	btn := b.findButton(name)
	if btn == nil {
		return fmt.Errorf("%w: %s", ErrUnknownButton, name)
	}
	sim, ok := b.chip.(*gpio.SimChip)
	if !ok {
		return errcode.New(errcode.NotSupported,
			"press "+name, fmt.Errorf("backend %s cannot inject edges", b.chip.Name()))
	}
	sim.Press(btn.pin.Offset)
	return nil
}

func (b *Board) findButton(name string) *button {
	for _, btn := range b.buttons {
		if btn.pin.Name == name {
			return btn
		}
	}
	return nil
}

// QueueInfo summarizes the deferred queue.
type QueueInfo struct {
	Pending  int    `json:"pending"`
	Executed uint64 `json:"executed"`
	Failed   uint64 `json:"failed"`
	Dropped  uint64 `json:"dropped"`
}

// Info is a status snapshot of the whole board.
type Info struct {
	Chip      string          `json:"chip"`
	Simulated bool            `json:"simulated"`
	Value     uint8           `json:"value"`
	Speaker   bool            `json:"speaker"`
	Pins      []Pin           `json:"pins"`
	Lines     []gpio.LineInfo `json:"lines"`
	Buttons   []debounce.Info `json:"buttons"`
	Devices   []string        `json:"devices"`
	Queue     QueueInfo       `json:"queue"`
}

// Info returns a status snapshot.
func (b *Board) Info() (Info, error) {
	v, err := b.bank.Decode()
	if err != nil {
		return Info{}, err
	}
	on, err := b.speaker.State()
	if err != nil {
		return Info{}, err
	}
	_, simulated := b.chip.(*gpio.SimChip)

	info := Info{
		Chip:      b.chip.Name(),
		Simulated: simulated,
		Value:     v,
		Speaker:   on,
		Pins:      Pins(),
		Lines:     b.lines.Lines(),
		Devices:   b.devices.Names(),
		Queue: QueueInfo{
			Pending:  b.queue.Pending(),
			Executed: b.queue.Executed(),
			Failed:   b.queue.Failed(),
			Dropped:  b.queue.Dropped(),
		},
	}
	for _, btn := range b.buttons {
		info.Buttons = append(info.Buttons, btn.ctrl.Load().Info())
	}
	return info, nil
}
