//go:build linux

package gpio

import (
	"time"

	"github.com/warthog618/gpiod"
)

// gpiodChip drives a Linux GPIO character device through the v2 uAPI.
type gpiodChip struct {
	chip *gpiod.Chip
}

// OpenGpiod opens the named chip, e.g. "gpiochip0".
func OpenGpiod(name, consumer string) (Chip, error) {
	c, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &gpiodChip{chip: c}, nil
}

func (c *gpiodChip) Name() string { return c.chip.Name }

func (c *gpiodChip) RequestOutput(offset int, consumer string, initial bool) (OutputPin, error) {
	l, err := c.chip.RequestLine(offset,
		gpiod.WithConsumer(consumer),
		gpiod.AsOutput(boolToInt(initial)))
	if err != nil {
		return nil, err
	}
	return &gpiodLine{line: l}, nil
}

// RequestEdges requests offset as a pulled-up input reporting falling edges.
// gpiod runs the handler on the request's event goroutine.
func (c *gpiodChip) RequestEdges(offset int, consumer string, handler func(Edge)) (InputPin, error) {
	l, err := c.chip.RequestLine(offset,
		gpiod.WithConsumer(consumer),
		gpiod.AsInput,
		gpiod.WithPullUp,
		gpiod.WithFallingEdge,
		gpiod.WithEventHandler(func(evt gpiod.LineEvent) {
			if evt.Type != gpiod.LineEventFallingEdge {
				return
			}
			handler(Edge{Offset: evt.Offset, Time: time.Now()})
		}))
	if err != nil {
		return nil, err
	}
	return &gpiodLine{line: l}, nil
}

func (c *gpiodChip) Close() error {
	return c.chip.Close()
}

type gpiodLine struct {
	line *gpiod.Line
}

func (l *gpiodLine) Set(high bool) error {
	return l.line.SetValue(boolToInt(high))
}

func (l *gpiodLine) Get() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (l *gpiodLine) Close() error {
	return l.line.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
