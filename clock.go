package converse

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFrameRate approximates a display refresh rate.
const DefaultFrameRate = 60

// Clock schedules delayed callbacks. Stop reports whether it prevented the
// callback from running.
type Clock interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// FrameClock schedules a callback on the next rendering tick. The returned
// cancel func is safe to call after the callback ran.
type FrameClock interface {
	RequestFrame(f func()) (cancel func())
}

// SystemClock is a Clock backed by time.AfterFunc.
type SystemClock struct{}

// AfterFunc implements Clock.
func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// RateFrameClock aligns frame callbacks to a fixed maximum rate. Each request
// reserves one slot from a token-bucket limiter with burst 1, so callbacks
// never run more often than fps times per second.
type RateFrameClock struct {
	limiter *rate.Limiter
}

var _ FrameClock = (*RateFrameClock)(nil)

// NewFrameClock returns a FrameClock ticking at most fps times per second.
// Non-positive fps falls back to DefaultFrameRate.
func NewFrameClock(fps int) *RateFrameClock {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &RateFrameClock{
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(fps)), 1),
	}
}

// RequestFrame implements FrameClock.
func (c *RateFrameClock) RequestFrame(f func()) func() {
	r := c.limiter.Reserve()
	timer := time.AfterFunc(r.Delay(), f)
	var once sync.Once
	return func() {
		once.Do(func() {
			if timer.Stop() {
				// The slot was never used; give it back.
				r.Cancel()
			}
		})
	}
}
