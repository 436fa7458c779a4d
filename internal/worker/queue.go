// Package worker runs deferred button actions outside interrupt context.
//
// A Queue has exactly one consumer goroutine. Enqueue never blocks, so it is
// safe to call from a GPIO edge callback; when the buffer is full the item is
// refused and counted instead of stalling the caller.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/boardnode/internal/errcode"
	"github.com/smazurov/boardnode/internal/metrics"
)

// DefaultSize is the queue capacity used when Options.Size is zero.
const DefaultSize = 16

var (
	// ErrQueueFull is returned by Enqueue when the buffer has no room.
	ErrQueueFull = errors.New("deferred queue full")
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("deferred queue stopped")
)

// Action is the LED bank operation a button triggers.
type Action int

// Deferred actions.
const (
	Increment Action = iota
	Decrement
)

func (a Action) String() string {
	switch a {
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Item is one unit of deferred work.
type Item struct {
	Button string
	Action Action
	Raised time.Time
}

// Handler executes an item on the worker goroutine.
type Handler func(Item) error

// Options configures a Queue.
type Options struct {
	// Size is the buffer capacity. Zero means DefaultSize.
	Size int
	// Handler runs every dequeued item (required).
	Handler Handler
	// Logger for queue operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Queue is a bounded single-consumer work queue.
type Queue struct {
	items   chan Item
	quit    chan struct{}
	done    chan struct{}
	handler Handler
	logger  *slog.Logger

	drain    bool
	started  atomic.Bool
	stopOnce sync.Once

	executed atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a stopped queue; call Start to launch the consumer.
func New(opts Options) *Queue {
	if opts.Handler == nil {
		panic("worker.Options.Handler is required")
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		items:   make(chan Item, size),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		handler: opts.Handler,
		logger:  logger,
	}
}

// Start launches the consumer goroutine. Calling it again is a no-op.
func (q *Queue) Start() {
	if !q.started.CompareAndSwap(false, true) {
		return
	}
	go q.run()
}

// Enqueue hands item to the consumer without blocking.
func (q *Queue) Enqueue(item Item) error {
	select {
	case <-q.quit:
		return errcode.New(errcode.Closed, "enqueue "+item.Action.String(), ErrStopped)
	default:
	}

	select {
	case q.items <- item:
		return nil
	default:
		q.dropped.Add(1)
		metrics.IncDeferredDropped()
		return errcode.New(errcode.QueueFull,
			fmt.Sprintf("enqueue %s for %s", item.Action, item.Button), ErrQueueFull)
	}
}

// Stop ends the consumer and waits for it to exit. With drain set, items
// already queued are executed first; otherwise they are discarded. Only the
// first call has an effect.
func (q *Queue) Stop(drain bool) {
	q.stopOnce.Do(func() {
		q.drain = drain
		close(q.quit)
		if q.started.Load() {
			<-q.done
		}
		q.logger.Debug("Deferred queue stopped",
			"drain", drain,
			"executed", q.executed.Load(),
			"failed", q.failed.Load(),
			"dropped", q.dropped.Load())
	})
}

// Pending returns the number of queued items.
func (q *Queue) Pending() int { return len(q.items) }

// Executed returns the number of items the handler completed without error.
func (q *Queue) Executed() uint64 { return q.executed.Load() }

// Failed returns the number of items whose handler returned an error.
func (q *Queue) Failed() uint64 { return q.failed.Load() }

// Dropped returns the number of items refused or discarded.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case item := <-q.items:
			q.exec(item)
		case <-q.quit:
			q.flush()
			return
		}
	}
}

// flush empties the buffer after quit, running or discarding each item.
func (q *Queue) flush() {
	for {
		select {
		case item := <-q.items:
			if q.drain {
				q.exec(item)
				continue
			}
			q.dropped.Add(1)
			metrics.IncDeferredDropped()
			q.logger.Debug("Deferred item discarded", "button", item.Button, "action", item.Action.String())
		default:
			return
		}
	}
}

func (q *Queue) exec(item Item) {
	err := q.handler(item)
	metrics.IncDeferredAction(item.Action.String(), err == nil)
	if err != nil {
		q.failed.Add(1)
		q.logger.Warn("Deferred action failed",
			"button", item.Button,
			"action", item.Action.String(),
			"error", err)
		return
	}
	q.executed.Add(1)
	q.logger.Debug("Deferred action executed",
		"button", item.Button,
		"action", item.Action.String(),
		"latency", time.Since(item.Raised))
}
