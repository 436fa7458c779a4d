// Package gpio owns the board's GPIO lines.
//
// A Registry hands out exclusive handles for output lines (LEDs, speaker) and
// interrupt lines (buttons). Handles are safe to use from any goroutine and
// never block: Set and Get go straight to the backend, and interrupt masking is
// a single atomic flag checked before an edge is delivered.
package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/boardnode/internal/errcode"
	"github.com/smazurov/boardnode/internal/metrics"
)

var (
	// ErrLineUnavailable is returned when a line is missing or already owned.
	ErrLineUnavailable = errors.New("line unavailable")
	// ErrReleased is returned by handles used after Release.
	ErrReleased = errors.New("line released")
)

// Direction of a requested line.
type Direction string

// Line directions.
const (
	Output Direction = "output"
	Input  Direction = "input"
)

// Edge is a falling edge observed on an interrupt line.
type Edge struct {
	Offset int
	Time   time.Time
}

// OutputPin is a backend output line.
type OutputPin interface {
	Set(high bool) error
	Get() (bool, error)
	Close() error
}

// InputPin is a backend input line delivering falling edges.
type InputPin interface {
	Get() (bool, error)
	Close() error
}

// Chip is a GPIO backend. Implementations deliver edges by calling the
// handler passed to RequestEdges from their own goroutine.
type Chip interface {
	Name() string
	RequestOutput(offset int, consumer string, initial bool) (OutputPin, error)
	RequestEdges(offset int, consumer string, handler func(Edge)) (InputPin, error)
	Close() error
}

// LineInfo describes an owned line.
type LineInfo struct {
	Offset    int       `json:"offset"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Direction Direction `json:"direction"`
	High      bool      `json:"high"`
	Masked    bool      `json:"masked,omitempty"`
}

// Registry tracks ownership of the lines on one chip.
type Registry struct {
	chip   Chip
	mu     sync.Mutex
	lines  map[int]handle
	logger *slog.Logger
}

type handle interface {
	info() LineInfo
	release() error
}

// NewRegistry creates a registry over chip.
func NewRegistry(chip Chip, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		chip:   chip,
		lines:  make(map[int]handle),
		logger: logger,
	}
}

// Chip returns the backend the registry was created with.
func (r *Registry) Chip() Chip {
	return r.chip
}

// RequestOutput acquires offset as an output line driven to initial.
func (r *Registry) RequestOutput(offset int, name, owner string, initial bool) (*Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(offset, name); err != nil {
		return nil, err
	}

	pin, err := r.chip.RequestOutput(offset, name, initial)
	if err != nil {
		return nil, errcode.New(errcode.LineUnavailable,
			fmt.Sprintf("request output %s (offset %d)", name, offset),
			fmt.Errorf("%w: %w", ErrLineUnavailable, err))
	}

	l := &Line{offset: offset, name: name, owner: owner, pin: pin}
	r.lines[offset] = l
	r.logger.Debug("Line acquired", "line", name, "offset", offset, "owner", owner, "direction", Output)
	return l, nil
}

// RequestInterrupt acquires offset as a falling-edge interrupt line. The line
// starts unmasked; handler runs on the backend's event goroutine.
func (r *Registry) RequestInterrupt(offset int, name, owner string, handler func(Edge)) (*IRQLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(offset, name); err != nil {
		return nil, err
	}

	l := &IRQLine{offset: offset, name: name, owner: owner, handler: handler}
	pin, err := r.chip.RequestEdges(offset, name, l.deliver)
	if err != nil {
		return nil, errcode.New(errcode.IRQMapping,
			fmt.Sprintf("request interrupt %s (offset %d)", name, offset),
			fmt.Errorf("%w: %w", ErrLineUnavailable, err))
	}
	l.pin = pin
	r.lines[offset] = l
	r.logger.Debug("Line acquired", "line", name, "offset", offset, "owner", owner, "direction", Input)
	return l, nil
}

func (r *Registry) checkFree(offset int, name string) error {
	if cur, ok := r.lines[offset]; ok {
		info := cur.info()
		return errcode.New(errcode.LineUnavailable,
			fmt.Sprintf("%s (offset %d) already owned by %s", name, offset, info.Owner),
			ErrLineUnavailable)
	}
	return nil
}

// Release gives back a line obtained from this registry. Releasing a line
// twice is a no-op.
func (r *Registry) Release(offset int) error {
	r.mu.Lock()
	h, ok := r.lines[offset]
	if ok {
		delete(r.lines, offset)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	info := h.info()
	metrics.DeleteLineLevel(info.Name, info.Owner)
	r.logger.Debug("Line released", "line", info.Name, "offset", offset, "owner", info.Owner)
	return h.release()
}

// ReleaseAll releases every owned line, in descending offset order.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	offsets := make([]int, 0, len(r.lines))
	for off := range r.lines {
		offsets = append(offsets, off)
	}
	r.mu.Unlock()

	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))
	var errs []error
	for _, off := range offsets {
		if err := r.Release(off); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Owned returns the number of lines currently owned.
func (r *Registry) Owned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

// Lines returns a snapshot of every owned line ordered by offset.
func (r *Registry) Lines() []LineInfo {
	r.mu.Lock()
	infos := make([]LineInfo, 0, len(r.lines))
	for _, h := range r.lines {
		infos = append(infos, h.info())
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Offset < infos[j].Offset })
	return infos
}

// Line is an owned output line.
type Line struct {
	offset   int
	name     string
	owner    string
	pin      OutputPin
	released atomic.Bool
}

// Set drives the line.
func (l *Line) Set(high bool) error {
	if l.released.Load() {
		return ErrReleased
	}
	if err := l.pin.Set(high); err != nil {
		return errcode.New(errcode.Hardware, "set "+l.name, err)
	}
	return nil
}

// Get reads the line's current level.
func (l *Line) Get() (bool, error) {
	if l.released.Load() {
		return false, ErrReleased
	}
	v, err := l.pin.Get()
	if err != nil {
		return false, errcode.New(errcode.Hardware, "get "+l.name, err)
	}
	return v, nil
}

// Name returns the line's label.
func (l *Line) Name() string { return l.name }

func (l *Line) info() LineInfo {
	high, _ := l.Get()
	return LineInfo{Offset: l.offset, Name: l.name, Owner: l.owner, Direction: Output, High: high}
}

func (l *Line) release() error {
	if l.released.Swap(true) {
		return nil
	}
	return l.pin.Close()
}

// IRQLine is an owned interrupt line.
type IRQLine struct {
	offset   int
	name     string
	owner    string
	pin      InputPin
	handler  func(Edge)
	masked   atomic.Bool
	released atomic.Bool
	dropped  atomic.Uint64
}

// Mask stops edge delivery until Unmask.
func (l *IRQLine) Mask() { l.masked.Store(true) }

// Unmask resumes edge delivery.
func (l *IRQLine) Unmask() { l.masked.Store(false) }

// Masked reports whether edges are currently discarded.
func (l *IRQLine) Masked() bool { return l.masked.Load() }

// Dropped returns the number of edges discarded while masked.
func (l *IRQLine) Dropped() uint64 { return l.dropped.Load() }

// Name returns the line's label.
func (l *IRQLine) Name() string { return l.name }

func (l *IRQLine) deliver(e Edge) {
	if l.released.Load() {
		return
	}
	if l.masked.Load() {
		l.dropped.Add(1)
		metrics.IncMaskedEdge(l.name)
		return
	}
	l.handler(e)
}

func (l *IRQLine) info() LineInfo {
	var high bool
	if !l.released.Load() && l.pin != nil {
		high, _ = l.pin.Get()
	}
	return LineInfo{Offset: l.offset, Name: l.name, Owner: l.owner, Direction: Input, High: high, Masked: l.Masked()}
}

func (l *IRQLine) release() error {
	if l.released.Swap(true) {
		return nil
	}
	return l.pin.Close()
}
