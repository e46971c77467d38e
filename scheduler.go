package converse

import (
	"strings"

	"github.com/rivo/uniseg"
)

// DefaultFlushThreshold is the number of pending characters that forces an
// immediate flush.
const DefaultFlushThreshold = 20

// Scheduler decouples delta arrival from rendering. Deltas accumulate in a
// pending buffer which is flushed to the apply hook either synchronously,
// once the buffer holds threshold characters, or on the next frame of the
// FrameClock, whichever comes first. At most one frame is outstanding.
//
// Characters are counted as grapheme clusters. Scheduler is not safe for
// concurrent use: every method, and the frame callback it re-posts through
// the Dispatcher, runs on the Dispatcher goroutine.
type Scheduler struct {
	threshold int
	frames    FrameClock
	dispatch  Dispatcher
	apply     func(string)

	pending     strings.Builder
	cancelFrame func()
	frameSeq    uint64

	text    strings.Builder
	flushes int
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithFlushThreshold sets the character count that triggers an immediate
// flush. Non-positive values are ignored.
func WithFlushThreshold(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// NewScheduler creates a Scheduler that hands flushed text to apply.
func NewScheduler(frames FrameClock, d Dispatcher, apply func(string), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		threshold: DefaultFlushThreshold,
		frames:    frames,
		dispatch:  d,
		apply:     apply,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Push buffers a delta and flushes or schedules a flush.
func (s *Scheduler) Push(delta string) {
	if delta == "" {
		return
	}
	s.pending.WriteString(delta)
	if uniseg.GraphemeClusterCount(s.pending.String()) >= s.threshold {
		s.cancelScheduled()
		s.flush()
		return
	}
	if s.cancelFrame == nil {
		s.requestFrame()
	}
}

// Complete cancels any scheduled frame and flushes whatever is pending, so
// no trailing text is lost when the stream ends.
func (s *Scheduler) Complete() {
	s.cancelScheduled()
	s.flush()
}

// Reset drops pending text and the scheduled frame without flushing. The
// accumulated text is kept.
func (s *Scheduler) Reset() {
	s.cancelScheduled()
	s.pending.Reset()
}

// Text returns everything flushed so far. It only ever grows.
func (s *Scheduler) Text() string { return s.text.String() }

// Pending returns the buffered, not yet flushed text.
func (s *Scheduler) Pending() string { return s.pending.String() }

// Flushes returns how many non-empty flushes ran.
func (s *Scheduler) Flushes() int { return s.flushes }

// Scheduled reports whether a frame flush is outstanding.
func (s *Scheduler) Scheduled() bool { return s.cancelFrame != nil }

func (s *Scheduler) requestFrame() {
	s.frameSeq++
	seq := s.frameSeq
	s.cancelFrame = s.frames.RequestFrame(func() {
		s.dispatch.Dispatch(func() { s.onFrame(seq) })
	})
}

// onFrame ignores frames that were cancelled or superseded after they had
// already been queued.
func (s *Scheduler) onFrame(seq uint64) {
	if seq != s.frameSeq || s.cancelFrame == nil {
		return
	}
	s.cancelFrame = nil
	s.flush()
}

func (s *Scheduler) cancelScheduled() {
	if s.cancelFrame != nil {
		s.cancelFrame()
		s.cancelFrame = nil
	}
	s.frameSeq++
}

func (s *Scheduler) flush() {
	if s.pending.Len() == 0 {
		return
	}
	chunk := s.pending.String()
	s.pending.Reset()
	s.text.WriteString(chunk)
	s.flushes++
	if s.apply != nil {
		s.apply(chunk)
	}
}
