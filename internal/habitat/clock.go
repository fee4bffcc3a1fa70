package habitat

import "time"

// Clock abstracts wall time and one-shot timers so cooldowns and the
// mood-settle delay can be driven deterministically in tests instead of
// waiting on real timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
