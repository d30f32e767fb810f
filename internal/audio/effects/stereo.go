package effects

import (
	"fmt"
	"math"

	"github.com/hfdsp/receivercore/internal/audio"
)

const stereoMaxDelayMs = 100

// Stereo is the stereo virtualiser: a mono signal is split into a delayed
// left channel and an un-delayed right channel, blended by a width
// scalar, then scaled by a makeup gain. Output is interleaved L/R — twice
// the length of the input.
type Stereo struct {
	sampleRate int
	enabled    atomicBool

	delayMs  atomicFloat
	width    atomicFloat
	makeupDb atomicFloat

	delayLine []float32
	writePos  int

	clip *audio.ClipTap
}

// NewStereo builds a Stereo node at sampleRate with factory defaults:
// delay 20ms, width 0.5, makeup 0dB.
func NewStereo(sampleRate int) *Stereo {
	s := &Stereo{
		sampleRate: sampleRate,
		delayLine:  make([]float32, sampleRate*stereoMaxDelayMs/1000+1),
		clip:       audio.NewClipTap(),
	}
	s.enabled.store(false)
	s.delayMs.store(20)
	s.width.store(0.5)
	s.makeupDb.store(0)
	return s
}

func (s *Stereo) ID() audio.EffectID { return audio.EffectStereo }
func (s *Stereo) Enabled() bool      { return s.enabled.load() }
func (s *Stereo) SetEnabled(on bool) { s.enabled.store(on) }

// Apply produces an interleaved stereo buffer of length 2*len(in).
func (s *Stereo) Apply(in []float32) []float32 {
	out := make([]float32, len(in)*2)
	width := s.width.load()
	makeupLinear := math.Pow(10, s.makeupDb.load()/20)

	delaySamples := int(s.delayMs.load() / 1000 * float64(s.sampleRate))
	if delaySamples >= len(s.delayLine) {
		delaySamples = len(s.delayLine) - 1
	}

	for i, x := range in {
		s.delayLine[s.writePos] = x
		readPos := s.writePos - delaySamples
		if readPos < 0 {
			readPos += len(s.delayLine)
		}
		delayed := s.delayLine[readPos]
		s.writePos = (s.writePos + 1) % len(s.delayLine)

		left := width*float64(delayed) + (1-width)*float64(x)
		right := float64(x)

		out[2*i] = float32(left * makeupLinear)
		out[2*i+1] = float32(right * makeupLinear)
	}
	s.clip.Observe(out)
	return out
}

// SetParam accepts "delay" (ms, [0,100]), "width" ([0,1]), and "makeup"
// (dB).
func (s *Stereo) SetParam(name string, value float64) error {
	switch name {
	case "delay":
		v, clamped := clamp(value, 0, stereoMaxDelayMs)
		s.delayMs.store(v)
		if clamped {
			return fmt.Errorf("%w: delay", audio.ErrOutOfRange)
		}
	case "width":
		v, clamped := clamp(value, 0, 1)
		s.width.store(v)
		if clamped {
			return fmt.Errorf("%w: width", audio.ErrOutOfRange)
		}
	case "makeup":
		v, clamped := clamp(value, -12, 24)
		s.makeupDb.store(v)
		if clamped {
			return fmt.Errorf("%w: makeup", audio.ErrOutOfRange)
		}
	default:
		return fmt.Errorf("effects: unknown stereo parameter %q", name)
	}
	return nil
}

// LatencySamples converts the delayMs parameter to samples, matching the
// published latency-accountant formula for this node.
func (s *Stereo) LatencySamples(sampleRate int) int {
	return int(s.delayMs.load() / 1000 * float64(sampleRate))
}

// Clipping reports whether the post-makeup tap has clipped recently.
func (s *Stereo) Clipping() bool { return s.clip.Clipping() }

// DelayMs returns the current left-channel delay, the input the latency
// accountant's stereo formula depends on.
func (s *Stereo) DelayMs() float64 { return s.delayMs.load() }

// Width returns the current stereo width scalar.
func (s *Stereo) Width() float64 { return s.width.load() }

// MakeupDb returns the current makeup gain in dB.
func (s *Stereo) MakeupDb() float64 { return s.makeupDb.load() }
