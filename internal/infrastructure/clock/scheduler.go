package clock

import "time"

// Scheduler runs callbacks on the runtime timer wheel.
type Scheduler struct{}

func (Scheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}
