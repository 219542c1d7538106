// Package countdown provides a one-second resolution countdown whose tick
// source is owned by the caller's event loop.
//
// A Countdown never starts goroutines. While running it holds a
// clockwork.Ticker; the owner selects on C() and calls Tick() for every
// value received. C() is nil while idle, so a select case on an idle
// countdown never fires.
package countdown

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Resolution is the tick cadence.
const Resolution = time.Second

// Countdown decrements a whole-second counter while running.
// It is not safe for concurrent use.
type Countdown struct {
	clock     clockwork.Clock
	remaining int
	ticker    clockwork.Ticker
	onExpire  func()
}

// New creates an idle countdown holding seconds. onExpire may be nil.
func New(clock clockwork.Clock, seconds int, onExpire func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		clock:     clock,
		remaining: seconds,
		onExpire:  onExpire,
	}
}

// Start acquires the ticker. Starting a running countdown, or one that has
// already reached zero, does nothing.
func (c *Countdown) Start() {
	if c.ticker != nil || c.remaining == 0 {
		return
	}
	c.ticker = c.clock.NewTicker(Resolution)
}

// Stop releases the ticker and keeps the remaining value.
func (c *Countdown) Stop() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
}

// Reset stops the countdown and loads a new duration.
func (c *Countdown) Reset(seconds int) {
	c.Stop()
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int { return c.remaining }

// Running reports whether the ticker is held.
func (c *Countdown) Running() bool { return c.ticker != nil }

// C returns the tick channel, or nil while idle.
func (c *Countdown) C() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.Chan()
}

// Tick consumes one elapsed second. Reaching zero stops the countdown and
// fires onExpire exactly once. Ticks delivered after Stop are ignored.
func (c *Countdown) Tick() {
	if c.ticker == nil || c.remaining == 0 {
		return
	}
	c.remaining--
	if c.remaining > 0 {
		return
	}
	c.Stop()
	if c.onExpire != nil {
		c.onExpire()
	}
}
