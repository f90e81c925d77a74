package assess

import (
	"testing"
	"time"
)

func TestCountdown_RemainingRecomputedFromWallClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewCountdown(start, 900*time.Second, nil)

	// 300 seconds of wall clock elapsed, regardless of how many ticks ran.
	now := start.Add(300 * time.Second)
	if got := c.Remaining(now); got != 600*time.Second {
		t.Errorf("Remaining = %v, want 600s", got)
	}

	// Past the deadline the remaining time floors at zero.
	now = start.Add(2 * time.Hour)
	if got := c.Remaining(now); got != 0 {
		t.Errorf("Remaining past deadline = %v, want 0", got)
	}
}

func TestCountdown_ExpiryFiresExactlyOnce(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fired := 0
	c := NewCountdown(start, 5*time.Second, func() { fired++ })

	now := start
	crossings := 0
	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		if c.Tick(now) {
			crossings++
		}
	}

	if crossings != 1 {
		t.Errorf("Tick reported %d crossings, want exactly 1", crossings)
	}
	if fired != 1 {
		t.Errorf("onExpire fired %d times, want exactly 1", fired)
	}
	if !c.Expired() {
		t.Error("Expired() = false after crossing")
	}
}

func TestCountdown_NoFireBeforeDeadline(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewCountdown(start, time.Minute, nil)

	if c.Tick(start.Add(59 * time.Second)) {
		t.Error("Tick fired before the deadline")
	}
	if c.Expired() {
		t.Error("Expired() = true before the deadline")
	}
}

func TestCountdown_StoppedNeverFires(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewCountdown(start, time.Second, nil)
	c.Stop()

	if c.Tick(start.Add(time.Hour)) {
		t.Error("stopped countdown fired")
	}
}
