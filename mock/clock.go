package mock

import (
	"sync"
	"time"

	"github.com/fwojciec/converse"
)

// Interface compliance checks.
var (
	_ converse.Clock      = (*Clock)(nil)
	_ converse.FrameClock = (*FrameClock)(nil)
	_ converse.Clock      = (*ManualClock)(nil)
	_ converse.FrameClock = (*ManualFrames)(nil)
)

// Clock is a test double for converse.Clock.
type Clock struct {
	AfterFuncFn func(d time.Duration, f func()) func() bool
}

// AfterFunc delegates to AfterFuncFn.
func (c *Clock) AfterFunc(d time.Duration, f func()) func() bool {
	return c.AfterFuncFn(d, f)
}

// FrameClock is a test double for converse.FrameClock.
type FrameClock struct {
	RequestFrameFn func(f func()) func()
}

// RequestFrame delegates to RequestFrameFn.
func (c *FrameClock) RequestFrame(f func()) func() {
	return c.RequestFrameFn(f)
}

type pending struct {
	f        func()
	d        time.Duration
	canceled bool
}

// ManualClock is a converse.Clock whose callbacks run only when Fire is
// called. It is safe for concurrent use.
type ManualClock struct {
	mu      sync.Mutex
	pending []*pending
}

// AfterFunc records f. The returned stop func reports whether f was still
// pending.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &pending{f: f, d: d}
	c.pending = append(c.pending, p)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if p.canceled || p.f == nil {
			return false
		}
		p.canceled = true
		return true
	}
}

// Pending returns the delays of callbacks that have not fired or stopped.
func (c *ManualClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ds []time.Duration
	for _, p := range c.pending {
		if !p.canceled && p.f != nil {
			ds = append(ds, p.d)
		}
	}
	return ds
}

// Fire runs every pending callback in registration order and returns how
// many ran.
func (c *ManualClock) Fire() int {
	c.mu.Lock()
	var run []func()
	for _, p := range c.pending {
		if !p.canceled && p.f != nil {
			run = append(run, p.f)
			p.f = nil
		}
	}
	c.pending = nil
	c.mu.Unlock()
	for _, f := range run {
		f()
	}
	return len(run)
}

// ManualFrames is a converse.FrameClock whose frames tick only when Tick is
// called. It is safe for concurrent use.
type ManualFrames struct {
	clock    ManualClock
	requests int
}

// RequestFrame records f for the next Tick.
func (c *ManualFrames) RequestFrame(f func()) func() {
	c.clock.mu.Lock()
	c.requests++
	c.clock.mu.Unlock()
	stop := c.clock.AfterFunc(0, f)
	return func() { stop() }
}

// Requests returns how many frames were requested in total.
func (c *ManualFrames) Requests() int {
	c.clock.mu.Lock()
	defer c.clock.mu.Unlock()
	return c.requests
}

// Scheduled returns how many frames are waiting for the next Tick.
func (c *ManualFrames) Scheduled() int { return len(c.clock.Pending()) }

// Tick runs every scheduled frame and returns how many ran.
func (c *ManualFrames) Tick() int { return c.clock.Fire() }
