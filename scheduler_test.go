package converse_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(frames converse.FrameClock, d converse.Dispatcher, opts ...converse.SchedulerOption) (*converse.Scheduler, *[]string) {
	var applied []string
	s := converse.NewScheduler(frames, d, func(chunk string) {
		applied = append(applied, chunk)
	}, opts...)
	return s, &applied
}

func TestScheduler_ThresholdFlush(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	s, applied := newTestScheduler(&frames, &mock.Dispatcher{})

	for range 25 {
		s.Push("x")
	}
	assert.Equal(t, 1, s.Flushes())
	assert.Equal(t, strings.Repeat("x", 20), s.Text())
	assert.Equal(t, "xxxxx", s.Pending())
	assert.True(t, s.Scheduled())

	s.Complete()
	assert.GreaterOrEqual(t, s.Flushes(), 2)
	assert.Equal(t, strings.Repeat("x", 25), s.Text())
	assert.Equal(t, strings.Repeat("x", 25), strings.Join(*applied, ""))
	assert.Empty(t, s.Pending())
	assert.False(t, s.Scheduled())
	assert.Equal(t, 0, frames.Tick())
}

func TestScheduler_FrameFlush(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	s, applied := newTestScheduler(&frames, &mock.Dispatcher{})

	s.Push("Hi")
	s.Push(" there")
	assert.Equal(t, 1, frames.Requests(), "one frame per pending batch")
	assert.Equal(t, 0, s.Flushes())

	require.Equal(t, 1, frames.Tick())
	assert.Equal(t, []string{"Hi there"}, *applied)
	assert.False(t, s.Scheduled())

	s.Push("!")
	assert.Equal(t, 2, frames.Requests())
	frames.Tick()
	assert.Equal(t, "Hi there!", s.Text())
	assert.Equal(t, 2, s.Flushes())
}

func TestScheduler_IgnoresEmptyDelta(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	s, _ := newTestScheduler(&frames, &mock.Dispatcher{})

	s.Push("")
	assert.Equal(t, 0, frames.Requests())
	s.Complete()
	assert.Equal(t, 0, s.Flushes())
}

func TestScheduler_ThresholdCountsGraphemes(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	s, _ := newTestScheduler(&frames, &mock.Dispatcher{}, converse.WithFlushThreshold(3))

	s.Push("👍🏽")
	s.Push("é")
	assert.Equal(t, 0, s.Flushes(), "two user-perceived characters")
	s.Push("🇵🇱")
	assert.Equal(t, 1, s.Flushes())
	assert.Equal(t, "👍🏽é🇵🇱", s.Text())
}

func TestScheduler_Reset(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	s, applied := newTestScheduler(&frames, &mock.Dispatcher{})

	s.Push("dropped")
	s.Reset()
	assert.Equal(t, 0, frames.Tick(), "reset cancels the scheduled frame")
	assert.Empty(t, s.Pending())
	assert.Empty(t, *applied)
}

func TestScheduler_StaleQueuedFrameIgnored(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	q := converse.NewQueue()
	s, applied := newTestScheduler(&frames, q)

	s.Push("a")
	require.Equal(t, 1, frames.Tick())
	require.Equal(t, 1, q.Len(), "frame callback is re-posted, not run inline")

	s.Complete()
	assert.Equal(t, []string{"a"}, *applied)

	s.Push("b")
	q.Close()
	require.NoError(t, q.Run(context.Background()))
	assert.Equal(t, []string{"a"}, *applied, "frame queued before Complete must not flush")
	assert.Equal(t, "b", s.Pending())
}

func TestScheduler_NoLossAcrossMixedFlushes(t *testing.T) {
	t.Parallel()

	var frames mock.ManualFrames
	s, applied := newTestScheduler(&frames, &mock.Dispatcher{}, converse.WithFlushThreshold(5))

	deltas := []string{"ab", "c", "defgh", "i", "", "jk", "lmnopqrstu", "v"}
	for i, d := range deltas {
		s.Push(d)
		if i%3 == 0 {
			frames.Tick()
		}
	}
	s.Complete()

	assert.Equal(t, strings.Join(deltas, ""), s.Text())
	assert.Equal(t, s.Text(), strings.Join(*applied, ""))
	assert.Len(t, *applied, s.Flushes())
}
