// Package systemd reports service state to the systemd service manager.
//
// All calls are no-ops when the process was not started by systemd with
// NOTIFY_SOCKET set, so the daemon runs unchanged from a shell.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages and keeps the watchdog fed.
type Notifier struct {
	logger   *slog.Logger
	notify   func(state string) (bool, error)
	watchdog func() (time.Duration, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a notifier backed by the go-systemd daemon package.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		watchdog: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready tells systemd startup is complete and starts the watchdog loop if
// the unit has WatchdogSec set.
func (n *Notifier) Ready(ctx context.Context) {
	n.send(daemon.SdNotifyReady)
	n.startWatchdog(ctx)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) {
	n.send("STATUS=" + fmt.Sprintf(format, args...))
}

// Reloading tells systemd a configuration reload is in progress. Call Ready
// when it is done.
func (n *Notifier) Reloading() {
	n.send(daemon.SdNotifyReloading)
}

// Stopping tells systemd shutdown has begun and stops the watchdog loop.
func (n *Notifier) Stopping() {
	n.stopWatchdog()
	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) startWatchdog(ctx context.Context) {
	interval, err := n.watchdog()
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return
	}
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})

	// Ping at half the timeout, as sd_watchdog_enabled(3) recommends
	period := interval / 2
	n.logger.Info("Systemd watchdog enabled", "timeout", interval, "period", period)
	go n.keepalive(ctx, period, n.done)
}

func (n *Notifier) keepalive(ctx context.Context, period time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) stopWatchdog() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
