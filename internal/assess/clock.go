package assess

import (
	"time"
)

// Countdown is a wall-clock deadline: remaining time is always recomputed
// as max(0, duration - (now - startedAt)), never decremented tick by tick,
// so it is immune to drift and survives process restarts when rebuilt from
// a persisted start timestamp.
//
// A Countdown is an owned, cancellable object with a single idempotent
// expiry notification: Tick reports the zero crossing exactly once even if
// the driving ticker keeps running.
type Countdown struct {
	startedAt time.Time
	duration  time.Duration
	onExpire  func()
	fired     bool
	stopped   bool
}

// NewCountdown builds a countdown over [startedAt, startedAt+duration).
// onExpire may be nil; when set it is invoked exactly once, from the first
// Tick at or past the deadline.
func NewCountdown(startedAt time.Time, duration time.Duration, onExpire func()) *Countdown {
	return &Countdown{
		startedAt: startedAt,
		duration:  duration,
		onExpire:  onExpire,
	}
}

// Remaining returns the time left at now, floored at zero.
func (c *Countdown) Remaining(now time.Time) time.Duration {
	rem := c.duration - now.Sub(c.startedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

// Tick advances the countdown to now. It returns true on the tick that
// crosses the deadline and false on every other tick, including ticks that
// arrive after expiry.
func (c *Countdown) Tick(now time.Time) bool {
	if c.fired || c.stopped {
		return false
	}
	if c.Remaining(now) > 0 {
		return false
	}
	c.fired = true
	if c.onExpire != nil {
		c.onExpire()
	}
	return true
}

// Expired reports whether the expiry has fired.
func (c *Countdown) Expired() bool {
	return c.fired
}

// Stop cancels the countdown. A stopped countdown never fires.
func (c *Countdown) Stop() {
	c.stopped = true
}
