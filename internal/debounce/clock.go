package debounce

import "time"

// Timer is a rearmable one-shot timer.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock creates timers whose callback runs on its own goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock is the real-time Clock backed by time.AfterFunc.
type WallClock struct{}

// AfterFunc implements Clock.
func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
