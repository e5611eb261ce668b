package session

import "time"

// UntimedBound is the reset value used for modules without a time limit.
// The controller never consults an untimed clock for auto-advance, so the
// bound only has to be unreachable within one sitting.
const UntimedBound = 100 * 3600

// Clock is the per-module countdown. It counts whole seconds, never goes
// negative, and is polled rather than firing callbacks, so a timer event can
// never re-enter the controller while it is mid-transition.
//
// The time source is injected so tests can drive virtual time.
type Clock struct {
	now       func() time.Time
	deadline  time.Time
	remaining int
	running   bool
	fired     bool
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Reset arms the clock with a fresh budget and clears the one-shot expiry
// edge. The clock is left stopped.
func (c *Clock) Reset(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	c.running = false
	c.fired = false
}

func (c *Clock) Start() {
	if c.running {
		return
	}
	c.deadline = c.now().Add(time.Duration(c.remaining) * time.Second)
	c.running = true
}

// Stop freezes the countdown, capturing the seconds left so a later Start
// continues from the same point. Stopping is a pause, not a reset.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.remaining = c.secondsLeft()
	c.running = false
}

// Remaining reports whole seconds left. It is never negative.
func (c *Clock) Remaining() int {
	if !c.running {
		return c.remaining
	}
	return c.secondsLeft()
}

func (c *Clock) Running() bool {
	return c.running
}

// Poll reports the expiry edge: it returns true exactly once, when a running
// clock has reached zero. Subsequent calls return false until Reset.
func (c *Clock) Poll() bool {
	if !c.running || c.fired {
		return false
	}
	if c.secondsLeft() > 0 {
		return false
	}
	c.fired = true
	return true
}

func (c *Clock) secondsLeft() int {
	d := c.deadline.Sub(c.now())
	if d <= 0 {
		return 0
	}
	// Round up so the displayed value only drops after a full second elapses.
	return int((d + time.Second - 1) / time.Second)
}
