package core

import "time"

// Scheduler defers work by a fixed delay. The proxy uses it for soft expiry:
// an API cache entry is deleted by a scheduled task, not by a freshness check
// on read. The indirection exists so tests can advance time manually instead
// of sleeping.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler schedules on the runtime timer heap.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
