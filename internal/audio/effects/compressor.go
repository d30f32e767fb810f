package effects

import (
	"fmt"
	"math"

	"github.com/hfdsp/receivercore/internal/audio"
)

const compressorKneeDb = 30.0

// Compressor is a single soft-knee dynamics unit with makeup gain and a
// post-makeup clip tap.
type Compressor struct {
	sampleRate int
	enabled    atomicBool

	thresholdDb atomicFloat
	ratio       atomicFloat
	attackSec   atomicFloat
	releaseSec  atomicFloat
	makeupDb    atomicFloat

	envelopeDb float64
	clip       *audio.ClipTap
}

// NewCompressor builds a Compressor at its factory defaults: threshold
// -24 dB, ratio 12:1, attack 3 ms, release 250 ms, 0 dB makeup.
func NewCompressor(sampleRate int) *Compressor {
	c := &Compressor{sampleRate: sampleRate, clip: audio.NewClipTap()}
	c.enabled.store(true)
	c.thresholdDb.store(-24)
	c.ratio.store(12)
	c.attackSec.store(0.003)
	c.releaseSec.store(0.25)
	c.makeupDb.store(0)
	c.envelopeDb = -120
	return c
}

func (c *Compressor) ID() audio.EffectID { return audio.EffectCompressor }
func (c *Compressor) Enabled() bool      { return c.enabled.load() }
func (c *Compressor) SetEnabled(on bool) { c.enabled.store(on) }

func amplitudeToDb(a float64) float64 {
	if a <= 0 {
		return -120
	}
	return 20 * math.Log10(a)
}

// gainFor implements the soft-knee transfer curve: below knee the signal
// passes unchanged; within the knee a quadratic blend ramps toward the
// ratio'd slope; above the knee the full ratio applies.
func (c *Compressor) gainFor(levelDb float64) float64 {
	threshold := c.thresholdDb.load()
	ratio := c.ratio.load()
	knee := compressorKneeDb

	overshoot := levelDb - threshold
	var compressedDb float64
	switch {
	case overshoot <= -knee/2:
		compressedDb = levelDb
	case overshoot >= knee/2:
		compressedDb = threshold + overshoot/ratio
	default:
		blend := overshoot + knee/2
		compressedDb = levelDb + (1/ratio-1)*blend*blend/(2*knee)
	}
	return compressedDb - levelDb
}

// Apply runs a per-sample envelope follower feeding the soft-knee gain
// curve, followed by the makeup gain and a clip tap.
func (c *Compressor) Apply(in []float32) []float32 {
	attackSec := c.attackSec.load()
	releaseSec := c.releaseSec.load()
	sr := float64(c.sampleRate)
	attackCoeff := math.Exp(-1 / (attackSec * sr))
	releaseCoeff := math.Exp(-1 / (releaseSec * sr))
	makeupLinear := math.Pow(10, c.makeupDb.load()/20)

	out := make([]float32, len(in))
	for i, x := range in {
		level := amplitudeToDb(math.Abs(float64(x)))
		if level > c.envelopeDb {
			c.envelopeDb = attackCoeff*c.envelopeDb + (1-attackCoeff)*level
		} else {
			c.envelopeDb = releaseCoeff*c.envelopeDb + (1-releaseCoeff)*level
		}

		gainDb := c.gainFor(c.envelopeDb)
		gainLinear := math.Pow(10, gainDb/20)
		out[i] = float32(float64(x) * gainLinear * makeupLinear)
	}
	c.clip.Observe(out)
	return out
}

// SetParam accepts "threshold" (dB), "ratio", "attack" (s), "release" (s),
// and "makeup" (dB). Knee is fixed and not settable.
func (c *Compressor) SetParam(name string, value float64) error {
	switch name {
	case "threshold":
		v, clamped := clamp(value, -60, 0)
		c.thresholdDb.store(v)
		if clamped {
			return fmt.Errorf("%w: threshold", audio.ErrOutOfRange)
		}
	case "ratio":
		v, clamped := clamp(value, 1, 20)
		c.ratio.store(v)
		if clamped {
			return fmt.Errorf("%w: ratio", audio.ErrOutOfRange)
		}
	case "attack":
		v, clamped := clamp(value, 0.0005, 0.1)
		c.attackSec.store(v)
		if clamped {
			return fmt.Errorf("%w: attack", audio.ErrOutOfRange)
		}
	case "release":
		v, clamped := clamp(value, 0.01, 2)
		c.releaseSec.store(v)
		if clamped {
			return fmt.Errorf("%w: release", audio.ErrOutOfRange)
		}
	case "makeup":
		v, clamped := clamp(value, -12, 24)
		c.makeupDb.store(v)
		if clamped {
			return fmt.Errorf("%w: makeup", audio.ErrOutOfRange)
		}
	default:
		return fmt.Errorf("effects: unknown compressor parameter %q", name)
	}
	return nil
}

// LatencySamples converts the attack-time-plus-fixed-overhead latency
// formula (attackSeconds×1000 + 5 ms) into samples at sampleRate.
func (c *Compressor) LatencySamples(sampleRate int) int {
	ms := c.attackSec.load()*1000 + 5
	return int(ms / 1000 * float64(sampleRate))
}

// Clipping reports whether the post-makeup tap has clipped recently.
func (c *Compressor) Clipping() bool { return c.clip.Clipping() }

// AttackSeconds returns the current attack time, the input the latency
// accountant's compressor formula depends on.
func (c *Compressor) AttackSeconds() float64 { return c.attackSec.load() }

// ThresholdDb returns the current threshold in dB.
func (c *Compressor) ThresholdDb() float64 { return c.thresholdDb.load() }

// Ratio returns the current compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio.load() }

// ReleaseSeconds returns the current release time.
func (c *Compressor) ReleaseSeconds() float64 { return c.releaseSec.load() }

// MakeupDb returns the current makeup gain in dB.
func (c *Compressor) MakeupDb() float64 { return c.makeupDb.load() }
