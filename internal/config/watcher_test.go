package config

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[Runtime]) *Watcher[Runtime] {
	t.Helper()
	opts = append([]WatcherOption[Runtime]{WithDebounce[Runtime](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadRuntime, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	// Let fsnotify settle before the first write
	time.Sleep(100 * time.Millisecond)
	return w
}

func rewrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_ReloadsDebounceWindowAndLevels(t *testing.T) {
	path := writeConfig(t, "[debounce]\nwindow_ms = 300\n")
	w := startWatcher(t, path)

	received := make(chan Runtime, 1)
	w.OnReload(func(rt Runtime) { received <- rt })

	rewrite(t, path, "[logging]\nlevel = \"debug\"\n\n[debounce]\nwindow_ms = 80\n")

	select {
	case rt := <-received:
		if rt.DebounceWindow != 80*time.Millisecond || rt.Logging.Level != "debug" {
			t.Errorf("reloaded %+v, want 80ms window at debug", rt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_InvalidEditGoesToErrorHandler(t *testing.T) {
	path := writeConfig(t, "[debounce]\nwindow_ms = 300\n")

	errs := make(chan error, 1)
	w := startWatcher(t, path, WithErrorHandler[Runtime](func(err error) { errs <- err }))

	reloaded := make(chan Runtime, 1)
	w.OnReload(func(rt Runtime) { reloaded <- rt })

	rewrite(t, path, "[debounce]\nwindow_ms = -5\n")

	select {
	case <-errs:
	case rt := <-reloaded:
		t.Fatalf("handler called with rejected config %+v", rt)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestWatcher_CoalescesRapidWrites(t *testing.T) {
	path := writeConfig(t, "[debounce]\nwindow_ms = 300\n")
	w := startWatcher(t, path, WithDebounce[Runtime](200*time.Millisecond))

	var calls atomic.Int32
	var last atomic.Int64
	w.OnReload(func(rt Runtime) {
		calls.Add(1)
		last.Store(int64(rt.DebounceWindow))
	})

	for _, ms := range []string{"10", "20", "30", "40"} {
		rewrite(t, path, "[debounce]\nwindow_ms = "+ms+"\n")
		time.Sleep(40 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("handler calls = %d, want 1", got)
	}
	if got := time.Duration(last.Load()); got != 40*time.Millisecond {
		t.Errorf("last window = %s, want 40ms", got)
	}
}

func TestWatcher_Unsubscribe(t *testing.T) {
	path := writeConfig(t, "[debounce]\nwindow_ms = 300\n")
	w := startWatcher(t, path)

	var removed atomic.Int32
	kept := make(chan struct{}, 1)
	unsub := w.OnReload(func(Runtime) { removed.Add(1) })
	w.OnReload(func(Runtime) { kept <- struct{}{} })
	unsub()

	rewrite(t, path, "[debounce]\nwindow_ms = 100\n")
	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for remaining handler")
	}
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcher_ConcurrentSubscriptions(t *testing.T) {
	path := writeConfig(t, "[debounce]\nwindow_ms = 300\n")
	w := startWatcher(t, path, WithDebounce[Runtime](10*time.Millisecond))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := w.OnReload(func(Runtime) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}
	for _, ms := range []string{"100", "200", "300"} {
		rewrite(t, path, "[debounce]\nwindow_ms = "+ms+"\n")
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()
}

func TestWatcher_NoReloadAfterStop(t *testing.T) {
	path := writeConfig(t, "[debounce]\nwindow_ms = 300\n")
	w := NewConfigWatcher(path, LoadRuntime, newTestLogger(), WithDebounce[Runtime](50*time.Millisecond))

	var calls atomic.Int32
	w.OnReload(func(Runtime) { calls.Add(1) })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	rewrite(t, path, "[debounce]\nwindow_ms = 99\n")
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("handler calls after Stop = %d, want 0", got)
	}
}
