package audio

import (
	"sync"
	"time"
)

// Default timing constants for the priming and underrun-recovery policy.
const (
	DefaultPrimingOffset  = 200 * time.Millisecond
	DefaultFadeInDuration = 500 * time.Millisecond
	DefaultCriticalLow    = 50 * time.Millisecond
	DefaultResetFade      = 10 * time.Millisecond
	DefaultBufferPad      = 50 * time.Millisecond

	// underrunGraceFrames is how many frames must have been scheduled
	// before underrun recovery starts watching nextPlayTime.
	underrunGraceFrames = 3
)

// ScheduleResult is what Clock.Schedule reports back to the caller so it
// can drive the playback sink and any fade envelope.
type ScheduleResult struct {
	// StartTime is the media-clock time this frame should begin playing.
	StartTime time.Duration

	// FadeIn is true when a fade-in-from-silence envelope must be applied
	// to this frame (first frame overall, or first frame after a
	// sample-rate change).
	FadeIn         bool
	FadeInDuration time.Duration

	// Underrun is true when the scheduler detected the clock had fallen
	// behind and applied the reset-fade recovery.
	Underrun bool

	// SampleRateChanged is true when this frame's sample rate differs
	// from the previously active one; the caller must tear down and
	// reopen the sink and reinitialise buffered DSP state.
	SampleRateChanged bool
}

// ClockState is the externally observable snapshot of the clock.
type ClockState struct {
	NextPlayTime       time.Duration
	LastBufferCount    int
	StartReferenceTime time.Duration
}

// Clock is the monotonic media clock and buffer scheduler. It maintains
// nextPlayTime >= currentTime and schedules each incoming frame's start
// time so playback stays continuous.
type Clock struct {
	mu sync.Mutex

	now func() time.Duration

	nextPlayTime       time.Duration
	startReferenceTime time.Duration
	framesScheduled    int
	activeSampleRate   int

	primingOffset  time.Duration
	fadeInDuration time.Duration
	criticalLow    time.Duration
	resetFade      time.Duration
	bufferPad      time.Duration
}

// NewClock creates a Clock driven by now, the media-clock time source.
// now must be monotonic and start at or near zero for the lifetime of the
// clock; production callers pass a function reading an audio context's
// currentTime, tests pass a fake that advances deterministically.
func NewClock(now func() time.Duration) *Clock {
	return &Clock{
		now:            now,
		primingOffset:  DefaultPrimingOffset,
		fadeInDuration: DefaultFadeInDuration,
		criticalLow:    DefaultCriticalLow,
		resetFade:      DefaultResetFade,
		bufferPad:      DefaultBufferPad,
	}
}

// Schedule assigns a start time to frame and advances the media clock.
// Frames must be scheduled serially, in arrival order; the control-plane
// reader is the only caller.
func (c *Clock) Schedule(frame Frame) ScheduleResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	currentTime := c.now()
	var result ScheduleResult

	sampleRateChanged := c.activeSampleRate != 0 && frame.SampleRate != c.activeSampleRate
	if sampleRateChanged {
		result.SampleRateChanged = true
		c.framesScheduled = 0
	}
	c.activeSampleRate = frame.SampleRate

	switch {
	case c.framesScheduled == 0:
		// First frame overall, or first frame after a sample-rate change:
		// prime the buffer and fade in from silence.
		c.nextPlayTime = currentTime + c.primingOffset
		c.startReferenceTime = currentTime
		result.FadeIn = true
		result.FadeInDuration = c.fadeInDuration

	case c.framesScheduled >= underrunGraceFrames &&
		(c.nextPlayTime < currentTime || c.nextPlayTime-currentTime < c.criticalLow):
		result.Underrun = true
		c.nextPlayTime = currentTime + c.resetFade + c.bufferPad
	}

	result.StartTime = c.nextPlayTime
	c.nextPlayTime += frame.Duration()
	c.framesScheduled++

	return result
}

// State returns a snapshot of the clock's internal bookkeeping.
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClockState{
		NextPlayTime:       c.nextPlayTime,
		LastBufferCount:    c.framesScheduled,
		StartReferenceTime: c.startReferenceTime,
	}
}

// BufferAhead returns how far ahead of currentTime the clock is scheduled,
// for diagnostics and the buffer-ahead guarantee exposed to the UI.
func (c *Clock) BufferAhead() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextPlayTime - c.now()
}
