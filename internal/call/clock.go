package call

import (
	"fmt"
	"sync"
	"time"
)

// FormatDuration renders the elapsed time between start and now as "MM:SS",
// floor-divided and zero-padded. A zero start (no active call) renders as
// "00:00".
func FormatDuration(now, start time.Time) string {
	if start.IsZero() || now.Before(start) {
		return "00:00"
	}
	total := int(now.Sub(start) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// DurationClock emits the formatted call duration once per tick while a
// call is Active. The value is derived from the start time on every tick,
// not accumulated, so it cannot drift. The owner must call Stop exactly
// once when the call leaves Active; Stop is safe to call more than once.
type DurationClock struct {
	start    time.Time
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once

	// C carries the latest "MM:SS" value. Slow readers miss ticks rather
	// than blocking the clock.
	C chan string
}

func NewDurationClock(start time.Time) *DurationClock {
	return newDurationClock(start, time.Second)
}

func newDurationClock(start time.Time, interval time.Duration) *DurationClock {
	c := &DurationClock{
		start:  start,
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
		C:      make(chan string, 1),
	}
	go c.run()
	return c
}

func (c *DurationClock) run() {
	for {
		select {
		case <-c.done:
			return
		case now := <-c.ticker.C:
			select {
			case c.C <- FormatDuration(now, c.start):
			default:
			}
		}
	}
}

// Stop releases the tick subscription. Idempotent.
func (c *DurationClock) Stop() {
	c.stopOnce.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}
