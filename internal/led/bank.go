// Package led implements the 6-line LED bank and its byte protocol.
//
// The bank has no stored value: Decode always reads the live line levels.
// Every read-modify-write (Encode, Apply, Increment, Decrement) runs under a
// single mutex, which is the only serialization point between button actions
// and device writes.
package led

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/metrics"
)

// Pin is one LED line. *gpio.Line satisfies it.
type Pin interface {
	Set(high bool) error
	Get() (bool, error)
}

// Sources reported in LEDValueChangedEvent.
const (
	SourceDevice   = "device"
	SourceShutdown = "shutdown"
)

// Bank is the ordered set of LED lines; line i carries bit i.
type Bank struct {
	mu     sync.Mutex
	lines  [NumLines]Pin
	bus    *events.Bus
	logger *slog.Logger
}

// NewBank creates a bank over lines. bus may be nil.
func NewBank(lines [NumLines]Pin, bus *events.Bus, logger *slog.Logger) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		lines:  lines,
		bus:    bus,
		logger: logger,
	}
}

// Decode returns the bank value; bits 6 and 7 are always zero.
func (b *Bank) Decode() (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read()
}

// Encode parses a wire byte and applies it.
func (b *Bank) Encode(v byte) error {
	cmd, err := ParseCommand(v)
	if err != nil {
		return err
	}
	_, err = b.Apply(cmd, SourceDevice)
	return err
}

// Apply executes cmd atomically and returns the resulting value.
func (b *Bank) Apply(cmd Command, source string) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apply(cmd, source)
}

// Increment adds one, wrapping 63 to 0.
func (b *Bank) Increment(source string) (uint8, error) {
	return b.step(1, source)
}

// Decrement subtracts one, wrapping 0 to 63.
func (b *Bank) Decrement(source string) (uint8, error) {
	return b.step(-1, source)
}

// Clear turns every LED off.
func (b *Bank) Clear() error {
	_, err := b.Apply(Absolute(0), SourceShutdown)
	return err
}

func (b *Bank) step(delta int, source string) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.read()
	if err != nil {
		return 0, err
	}
	next := uint8((int(cur) + delta) & MaxValue)
	return b.apply(Absolute(next), source)
}

// read must be called with b.mu held.
func (b *Bank) read() (uint8, error) {
	var v uint8
	for i, l := range b.lines {
		on, err := l.Get()
		if err != nil {
			return 0, err
		}
		if on {
			v |= 1 << i
		}
	}
	return v, nil
}

// apply must be called with b.mu held. Absolute writes every line; set and
// clear only touch lines whose level actually changes.
func (b *Bank) apply(cmd Command, source string) (uint8, error) {
	prev, err := b.read()
	if err != nil {
		return 0, err
	}
	next := cmd.Next(prev)

	for i, l := range b.lines {
		want := next&(1<<i) != 0
		if cmd.Mode != ModeAbsolute && want == (prev&(1<<i) != 0) {
			continue
		}
		if err := l.Set(want); err != nil {
			b.logger.Error("LED line write failed", "line", i, "command", cmd.String(), "error", err)
			return 0, err
		}
	}

	metrics.IncLEDWrite(cmd.Mode.String())
	metrics.SetLEDValue(next)

	b.logger.Debug("LED bank written",
		"command", cmd.String(),
		"source", source,
		"previous", prev,
		"value", next)

	if next != prev {
		b.bus.Publish(events.LEDValueChangedEvent{
			Value:     next,
			Previous:  prev,
			Source:    source,
			Mode:      cmd.Mode.String(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return next, nil
}
