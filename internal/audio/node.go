package audio

import (
	"fmt"
	"sync"
	"time"
)

// EffectID tags the closed set of effect variants. The Session dispatches
// on this tag rather than using open-ended polymorphism.
type EffectID string

const (
	EffectPeaking    EffectID = "peaking"
	EffectBandpass   EffectID = "bandpass"
	EffectNotch      EffectID = "notch"
	EffectCompressor EffectID = "compressor"
	EffectNR         EffectID = "nr"
	EffectSquelch    EffectID = "squelch"
	EffectStereo     EffectID = "stereo"
	EffectGain       EffectID = "gain"
)

// Node is the common effect contract: apply a buffer of samples, validate
// and commit a named parameter, and report the node's constant processing
// latency in samples at a given sample rate.
type Node interface {
	ID() EffectID
	Apply(in []float32) []float32
	SetParam(name string, value float64) error
	LatencySamples(sampleRate int) int
	Enabled() bool
	SetEnabled(bool)
}

// ErrOutOfRange is returned (wrapped) by SetParam when a value is clamped;
// it is non-fatal — callers log it as a warning and use the clamped value,
// which SetParam has already committed.
var ErrOutOfRange = fmt.Errorf("audio: parameter out of range")

// clamp restricts v to [lo, hi], returning the clamped value and whether
// clamping occurred.
func clamp(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

// ClipTap is a non-intrusive observer placed after an effect's output to
// detect samples exceeding ±0.99 normalised amplitude. The clipping flag
// auto-clears after 2s of no further clipping; since the audio task calls
// Observe on every processed buffer, this check naturally runs once per
// buffer rather than on a background timer.
type ClipTap struct {
	mu       sync.Mutex
	clipping bool
	lastClip time.Time
	now      func() time.Time
}

// NewClipTap creates a ClipTap using the real wall clock.
func NewClipTap() *ClipTap {
	return &ClipTap{now: time.Now}
}

// newClipTapWithClock is used by tests to inject a deterministic clock.
func newClipTapWithClock(now func() time.Time) *ClipTap {
	return &ClipTap{now: now}
}

// Observe scans samples for clipping and updates the clipping flag.
func (c *ClipTap) Observe(samples []float32) {
	clipped := false
	for _, s := range samples {
		if s > 0.99 || s < -0.99 {
			clipped = true
			break
		}
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if clipped {
		c.clipping = true
		c.lastClip = now
		return
	}
	if c.clipping && now.Sub(c.lastClip) >= 2*time.Second {
		c.clipping = false
	}
}

// Clipping reports the current clip indicator state.
func (c *ClipTap) Clipping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clipping
}
