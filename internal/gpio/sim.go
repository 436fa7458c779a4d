package gpio

import (
	"fmt"
	"sync"
	"time"
)

// SimChip is an in-memory chip. Edges are delivered synchronously on the
// goroutine that calls Press or Bounce, which makes it the interrupt context.
type SimChip struct {
	name        string
	numLines    int
	mu          sync.Mutex
	lines       map[int]*simLine
	unavailable map[int]bool
	closed      bool
}

type simLine struct {
	high      bool
	requested bool
	handler   func(Edge)
}

// SimOption configures a SimChip.
type SimOption func(*SimChip)

// WithUnavailable marks offsets that refuse every request, as a line held
// by another consumer would.
func WithUnavailable(offsets ...int) SimOption {
	return func(c *SimChip) {
		for _, off := range offsets {
			c.unavailable[off] = true
		}
	}
}

// NewSimChip creates a simulated chip with numLines lines, all low.
func NewSimChip(numLines int, opts ...SimOption) *SimChip {
	c := &SimChip{
		name:        "gpio-sim",
		numLines:    numLines,
		lines:       make(map[int]*simLine),
		unavailable: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Chip.
func (c *SimChip) Name() string { return c.name }

// RequestOutput implements Chip.
func (c *SimChip) RequestOutput(offset int, _ string, initial bool) (OutputPin, error) {
	l, err := c.claim(offset)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	l.high = initial
	c.mu.Unlock()
	return &simOutput{chip: c, offset: offset}, nil
}

// RequestEdges implements Chip. Button inputs idle high (pull-up).
func (c *SimChip) RequestEdges(offset int, _ string, handler func(Edge)) (InputPin, error) {
	l, err := c.claim(offset)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	l.high = true
	l.handler = handler
	c.mu.Unlock()
	return &simInput{chip: c, offset: offset}, nil
}

func (c *SimChip) claim(offset int) (*simLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("chip %s closed", c.name)
	}
	if offset < 0 || offset >= c.numLines {
		return nil, fmt.Errorf("offset %d out of range [0,%d)", offset, c.numLines)
	}
	if c.unavailable[offset] {
		return nil, fmt.Errorf("offset %d busy", offset)
	}
	l, ok := c.lines[offset]
	if !ok {
		l = &simLine{}
		c.lines[offset] = l
	}
	if l.requested {
		return nil, fmt.Errorf("offset %d busy", offset)
	}
	l.requested = true
	return l, nil
}

// Press simulates one clean button press on offset: a falling edge followed
// by the line returning high. It reports whether a handler was attached.
func (c *SimChip) Press(offset int) bool {
	return c.Bounce(offset, 1)
}

// Bounce simulates a press whose contacts chatter: n falling edges in quick
// succession on the calling goroutine.
func (c *SimChip) Bounce(offset, n int) bool {
	c.mu.Lock()
	l, ok := c.lines[offset]
	if !ok || !l.requested || l.handler == nil {
		c.mu.Unlock()
		return false
	}
	handler := l.handler
	c.mu.Unlock()

	for range n {
		c.setLevel(offset, false)
		handler(Edge{Offset: offset, Time: time.Now()})
		c.setLevel(offset, true)
	}
	return true
}

// Level returns the simulated level of offset.
func (c *SimChip) Level(offset int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lines[offset]; ok {
		return l.high
	}
	return false
}

// Requested reports whether offset is currently held by a consumer.
func (c *SimChip) Requested(offset int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[offset]
	return ok && l.requested
}

func (c *SimChip) setLevel(offset int, high bool) {
	c.mu.Lock()
	if l, ok := c.lines[offset]; ok {
		l.high = high
	}
	c.mu.Unlock()
}

func (c *SimChip) free(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lines[offset]; ok {
		l.requested = false
		l.handler = nil
	}
}

// Close implements Chip.
func (c *SimChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type simOutput struct {
	chip   *SimChip
	offset int
}

func (p *simOutput) Set(high bool) error {
	p.chip.setLevel(p.offset, high)
	return nil
}

func (p *simOutput) Get() (bool, error) {
	return p.chip.Level(p.offset), nil
}

func (p *simOutput) Close() error {
	p.chip.free(p.offset)
	return nil
}

type simInput struct {
	chip   *SimChip
	offset int
}

func (p *simInput) Get() (bool, error) {
	return p.chip.Level(p.offset), nil
}

func (p *simInput) Close() error {
	p.chip.free(p.offset)
	return nil
}
