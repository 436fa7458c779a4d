package systemd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func newTestNotifier(rec *recorder, interval time.Duration, wdErr error) *Notifier {
	n := NewNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.notify = rec.notify
	n.watchdog = func() (time.Duration, error) { return interval, wdErr }
	return n
}

func TestNotifierLifecycle(t *testing.T) {
	rec := &recorder{}
	n := newTestNotifier(rec, 0, nil)

	n.Ready(context.Background())
	n.Status("value=%d", 6)
	n.Reloading()
	n.Stopping()

	want := []string{daemon.SdNotifyReady, "STATUS=value=6", daemon.SdNotifyReloading, daemon.SdNotifyStopping}
	if strings.Join(rec.states, ",") != strings.Join(want, ",") {
		t.Errorf("states = %v, want %v", rec.states, want)
	}
}

func TestNotifierWatchdog(t *testing.T) {
	rec := &recorder{}
	n := newTestNotifier(rec, 10*time.Millisecond, nil)

	n.Ready(context.Background())
	deadline := time.Now().Add(time.Second)
	for rec.count(daemon.SdNotifyWatchdog) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if rec.count(daemon.SdNotifyWatchdog) < 3 {
		t.Fatalf("watchdog pings = %d, want at least 3", rec.count(daemon.SdNotifyWatchdog))
	}

	n.Stopping()
	if rec.last() != daemon.SdNotifyStopping {
		t.Errorf("last state = %q, want STOPPING=1", rec.last())
	}
	pings := rec.count(daemon.SdNotifyWatchdog)
	time.Sleep(30 * time.Millisecond)
	if rec.count(daemon.SdNotifyWatchdog) != pings {
		t.Error("watchdog kept pinging after Stopping")
	}
}

func TestNotifierWatchdogError(t *testing.T) {
	rec := &recorder{}
	n := newTestNotifier(rec, 0, errors.New("bad WATCHDOG_USEC"))

	n.Ready(context.Background())
	n.Stopping()
	if rec.count(daemon.SdNotifyWatchdog) != 0 {
		t.Error("watchdog should not run when its settings are invalid")
	}
}
