package audio

import "time"

// FadeEnvelope applies the clock's fade policies to the processed signal:
// the first-frame fade-in from silence and the brief fade-out-then-in of
// underrun recovery. It is owned by the audio task and advanced one
// sample frame at a time, so a fade never jumps discontinuously at a
// buffer boundary. Placed after the volume stage, a 0→1 ramp lands the
// output at the user's current volume.
type FadeEnvelope struct {
	gain     float64
	target   float64
	duration time.Duration

	// pendingIn holds the fade-in duration queued behind an underrun
	// fade-out; it starts once the fade-out reaches silence.
	pendingIn time.Duration
}

// NewFadeEnvelope returns an envelope at unity gain with no fade active.
func NewFadeEnvelope() *FadeEnvelope {
	return &FadeEnvelope{gain: 1, target: 1}
}

// TriggerFadeIn cuts the envelope to silence and ramps back to unity over
// d. Used for the first scheduled frame and the first frame after a
// sample-rate change.
func (e *FadeEnvelope) TriggerFadeIn(d time.Duration) {
	e.gain = 0
	e.target = 1
	e.duration = d
	e.pendingIn = 0
}

// TriggerReset starts the underrun-recovery sequence: fade out over fade,
// then fade back in over the same duration.
func (e *FadeEnvelope) TriggerReset(fade time.Duration) {
	e.target = 0
	e.duration = fade
	e.pendingIn = fade
}

// Apply multiplies samples (interleaved when channels > 1) by the
// envelope, advancing it one sample frame per channel group at
// sampleRate. It mutates samples in place.
func (e *FadeEnvelope) Apply(samples []float32, sampleRate, channels int) {
	if channels < 1 {
		channels = 1
	}
	if e.gain == e.target && e.pendingIn == 0 {
		if e.gain == 1 {
			return
		}
		for i := range samples {
			samples[i] = float32(float64(samples[i]) * e.gain)
		}
		return
	}

	frames := len(samples) / channels
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			i := f*channels + c
			samples[i] = float32(float64(samples[i]) * e.gain)
		}

		if e.gain != e.target {
			step := 1.0
			if sec := e.duration.Seconds(); sec > 0 && sampleRate > 0 {
				step = 1 / (sec * float64(sampleRate))
			}
			if e.gain < e.target {
				e.gain += step
				if e.gain > e.target {
					e.gain = e.target
				}
			} else {
				e.gain -= step
				if e.gain < e.target {
					e.gain = e.target
				}
			}
		}
		if e.gain == 0 && e.target == 0 && e.pendingIn > 0 {
			e.target = 1
			e.duration = e.pendingIn
			e.pendingIn = 0
		}
	}
}

// Gain reports the current envelope gain, for diagnostics.
func (e *FadeEnvelope) Gain() float64 { return e.gain }
