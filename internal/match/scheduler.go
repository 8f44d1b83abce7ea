// internal/match/scheduler.go
//
// Deferred and periodic callbacks for the round controller.
// Responsibilities:
//   - Scheduler: the seam between the controller and the clock, so tests can
//     drive time by hand.
//   - RealScheduler: wall-clock implementation on time.AfterFunc and a ticker
//     goroutine.

package match

import (
	"sync"
	"time"
)

// Cancel stops a scheduled callback. Calling it more than once is harmless.
type Cancel func()

// Scheduler runs callbacks later. The Controller uses it for the mismatch
// delay, the peek timeout, and the one-second elapsed tick.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Cancel
	Every(d time.Duration, f func()) Cancel
}

// RealScheduler schedules on the wall clock.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

func (RealScheduler) Every(d time.Duration, f func()) Cancel {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				f()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
