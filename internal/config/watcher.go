package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long the watcher waits for writes to settle
// before reloading.
const DefaultReloadDelay = 1500 * time.Millisecond

// Watcher reloads a configuration file with loader whenever it changes and
// hands the result to every registered handler. The file is loaded fresh on
// each change; a load error leaves the running configuration alone.
//
// The parent directory is watched rather than the file so editors that save
// by renaming a temporary file over the original keep triggering reloads.
type Watcher[T any] struct {
	path   string
	delay  time.Duration
	loader func(path string) (T, error)
	logger *slog.Logger

	onError func(error)

	mu       sync.Mutex
	handlers []reloadHandler[T]
	nextID   int

	fsw      *fsnotify.Watcher
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type reloadHandler[T any] struct {
	id int
	fn func(T)
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets how long writes must settle before a reload.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.delay = d
	}
}

// WithErrorHandler is called with every failed reload, after it is logged.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher creates a watcher for path. Nothing is watched until
// Start.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	w := &Watcher[T]{
		path:   filepath.Clean(path),
		delay:  DefaultReloadDelay,
		loader: loader,
		logger: logger,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers handler and returns a function that removes it.
// Handlers run on the watcher goroutine in registration order.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.handlers = append(w.handlers, reloadHandler[T]{id: id, fn: handler})
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, h := range w.handlers {
			if h.id == id {
				w.handlers = append(w.handlers[:i:i], w.handlers[i+1:]...)
				return
			}
		}
	}
}

// Start begins watching the configuration file.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if addErr := fsw.Add(filepath.Dir(w.path)); addErr != nil {
		return errors.Join(addErr, fsw.Close())
	}
	w.fsw = fsw

	w.logger.Info("Config watcher started", "path", w.path, "delay", w.delay)
	go w.watch()
	return nil
}

// Stop ends the watch loop and waits for it to exit. A reload already in
// progress finishes first.
func (w *Watcher[T]) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.quit)
		if w.fsw == nil {
			return
		}
		err = w.fsw.Close()
		<-w.done
	})
	return err
}

func (w *Watcher[T]) watch() {
	defer close(w.done)

	settle := time.NewTimer(w.delay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-w.quit:
			w.logger.Debug("Config watcher stopped")
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("Config file change detected", "op", ev.Op.String())
			settle.Reset(w.delay)

		case <-settle.C:
			select {
			case <-w.quit:
				return
			default:
			}
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Config reload rejected", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	handlers := make([]func(T), len(w.handlers))
	for i, h := range w.handlers {
		handlers[i] = h.fn
	}
	w.mu.Unlock()

	w.logger.Info("Config reloaded", "path", w.path, "handlers", len(handlers))
	for _, fn := range handlers {
		fn(cfg)
	}
}
