package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// virtualTime is an injectable time source tests can step manually.
type virtualTime struct {
	current time.Time
}

func newVirtualTime() *virtualTime {
	return &virtualTime{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (v *virtualTime) Now() time.Time {
	return v.current
}

func (v *virtualTime) Advance(d time.Duration) {
	v.current = v.current.Add(d)
}

func TestClock_CountsDownWholeSeconds(t *testing.T) {
	vt := newVirtualTime()
	c := NewClock(vt.Now)

	c.Reset(10)
	assert.Equal(t, 10, c.Remaining())

	c.Start()
	assert.Equal(t, 10, c.Remaining())

	vt.Advance(1 * time.Second)
	assert.Equal(t, 9, c.Remaining())

	vt.Advance(3 * time.Second)
	assert.Equal(t, 6, c.Remaining())
}

func TestClock_NeverNegative(t *testing.T) {
	vt := newVirtualTime()
	c := NewClock(vt.Now)

	c.Reset(2)
	c.Start()
	vt.Advance(10 * time.Second)

	assert.Equal(t, 0, c.Remaining())
	c.Stop()
	assert.Equal(t, 0, c.Remaining())
}

func TestClock_StopFreezesCountdown(t *testing.T) {
	vt := newVirtualTime()
	c := NewClock(vt.Now)

	c.Reset(30)
	c.Start()
	vt.Advance(10 * time.Second)
	c.Stop()

	// Frozen while stopped, regardless of elapsed wall time.
	vt.Advance(1 * time.Hour)
	assert.Equal(t, 20, c.Remaining())

	// Restart continues from where it stopped.
	c.Start()
	vt.Advance(5 * time.Second)
	assert.Equal(t, 15, c.Remaining())
}

func TestClock_PollFiresExactlyOnce(t *testing.T) {
	vt := newVirtualTime()
	c := NewClock(vt.Now)

	c.Reset(2)
	c.Start()

	assert.False(t, c.Poll())
	vt.Advance(1 * time.Second)
	assert.False(t, c.Poll())
	vt.Advance(1 * time.Second)

	assert.True(t, c.Poll(), "expiry edge fires once")
	assert.False(t, c.Poll(), "edge already consumed")
	vt.Advance(1 * time.Second)
	assert.False(t, c.Poll())
}

func TestClock_PollSilentWhileStopped(t *testing.T) {
	vt := newVirtualTime()
	c := NewClock(vt.Now)

	c.Reset(1)
	assert.False(t, c.Poll(), "not running")

	c.Start()
	c.Stop()
	vt.Advance(5 * time.Second)
	assert.False(t, c.Poll(), "stopped clock cannot expire")
}

func TestClock_ResetClearsFiredEdge(t *testing.T) {
	vt := newVirtualTime()
	c := NewClock(vt.Now)

	c.Reset(1)
	c.Start()
	vt.Advance(2 * time.Second)
	assert.True(t, c.Poll())

	c.Reset(5)
	c.Start()
	vt.Advance(5 * time.Second)
	assert.True(t, c.Poll(), "new countdown gets a fresh edge")
}
