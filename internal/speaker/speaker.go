// Package speaker drives the board's single speaker line.
package speaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/boardnode/internal/errcode"
	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/metrics"
)

// ErrNotSupported is returned by Read; the speaker is write-only.
var ErrNotSupported = errors.New("speaker is write-only")

// Pin is the speaker output line. *gpio.Line satisfies it.
type Pin interface {
	Set(high bool) error
	Get() (bool, error)
}

// Speaker controls one output line.
type Speaker struct {
	mu     sync.Mutex
	line   Pin
	bus    *events.Bus
	logger *slog.Logger
}

// New creates a speaker over line. bus may be nil.
func New(line Pin, bus *events.Bus, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{line: line, bus: bus, logger: logger}
}

// Write turns the speaker off for '0' and on for any other byte.
func (s *Speaker) Write(b byte) error {
	return s.Set(b != '0')
}

// Set drives the speaker line.
func (s *Speaker) Set(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.line.Set(on); err != nil {
		s.logger.Error("Speaker write failed", "on", on, "error", err)
		return err
	}
	metrics.SetSpeaker(on)
	s.logger.Debug("Speaker written", "on", on)
	s.bus.Publish(events.SpeakerChangedEvent{
		On:        on,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Off turns the speaker off.
func (s *Speaker) Off() error {
	return s.Set(false)
}

// Read always fails.
func (s *Speaker) Read() (byte, error) {
	return 0, errcode.New(errcode.NotSupported, "read speaker", ErrNotSupported)
}

// State reports the live line level for status pages. It is not exposed
// through the device interface.
func (s *Speaker) State() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line.Get()
}
