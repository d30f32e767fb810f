package effects

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hfdsp/receivercore/internal/audio"
)

// PeakingBandCenters are the 12 fixed EQ band centers in Hz.
var PeakingBandCenters = [12]float64{60, 170, 310, 600, 1000, 1500, 2000, 2500, 3000, 4000, 6000, 8000}

const peakingQ = 1.0

// VoicePreset and CWPreset are band-gain curves (dB) over the 12 bands,
// applied with their compensating makeup gain.
var VoicePreset = [12]float64{-3, -2, 0, 2, 3, 3, 2, 1, 0, -1, -2, -3}
var CWPreset = [12]float64{-12, -12, -12, -8, -4, 2, 8, 10, 6, 0, -8, -12}

// Peaking is the 12-band parametric equaliser node.
type Peaking struct {
	sampleRate int
	enabled    int32

	gainsDb [12]atomicFloat
	makeup  atomicFloat

	sections [12]biquad
	clip     *audio.ClipTap
}

// NewPeaking builds a Peaking node with all bands flat at 0 dB.
func NewPeaking(sampleRate int) *Peaking {
	p := &Peaking{sampleRate: sampleRate, clip: audio.NewClipTap()}
	p.enabled = 1
	for i, c := range PeakingBandCenters {
		p.sections[i].setPeaking(c, peakingQ, 0, sampleRate)
	}
	return p
}

func (p *Peaking) ID() audio.EffectID { return audio.EffectPeaking }

func (p *Peaking) Enabled() bool { return atomic.LoadInt32(&p.enabled) != 0 }
func (p *Peaking) SetEnabled(on bool) {
	v := int32(0)
	if on {
		v = 1
	}
	atomic.StoreInt32(&p.enabled, v)
}

// ApplyPreset loads one of the fixed band-gain curves and sets the
// compensating makeup gain to −0.7 × mean(positive band gains), clamped to
// [−12, 12] dB.
func (p *Peaking) ApplyPreset(curve [12]float64) {
	sum, n := 0.0, 0
	for i, g := range curve {
		p.gainsDb[i].store(g)
		p.sections[i].setPeaking(PeakingBandCenters[i], peakingQ, g, p.sampleRate)
		if g > 0 {
			sum += g
			n++
		}
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	p.makeup.store(clampf(-0.7*mean, -12, 12))
}

// Apply runs the 12 cascaded peaking sections followed by the makeup gain,
// then feeds the result through the clip tap.
func (p *Peaking) Apply(in []float32) []float32 {
	out := make([]float32, len(in))
	makeupLinear := math.Pow(10, p.makeup.load()/20)
	for i, x := range in {
		v := float64(x)
		for s := range p.sections {
			v = p.sections[s].process(v)
		}
		v *= makeupLinear
		out[i] = float32(v)
	}
	p.clip.Observe(out)
	return out
}

// SetParam accepts names "band0".."band11" (dB gain) and "makeup" (dB).
func (p *Peaking) SetParam(name string, value float64) error {
	if name == "makeup" {
		v, clamped := clamp(value, -12, 12)
		p.makeup.store(v)
		if clamped {
			return fmt.Errorf("%w: makeup", audio.ErrOutOfRange)
		}
		return nil
	}
	for i := range PeakingBandCenters {
		if name == fmt.Sprintf("band%d", i) {
			v, clamped := clamp(value, -12, 12)
			p.gainsDb[i].store(v)
			p.sections[i].setPeaking(PeakingBandCenters[i], peakingQ, v, p.sampleRate)
			if clamped {
				return fmt.Errorf("%w: %s", audio.ErrOutOfRange, name)
			}
			return nil
		}
	}
	return fmt.Errorf("effects: unknown peaking parameter %q", name)
}

// LatencySamples returns the 12-sample (one per cascaded section) constant
// latency contributed by this node.
func (p *Peaking) LatencySamples(sampleRate int) int { return 12 }

// Clipping reports whether the post-makeup tap has clipped recently.
func (p *Peaking) Clipping() bool { return p.clip.Clipping() }

// BandGains returns the current 12-band gain curve in dB.
func (p *Peaking) BandGains() [12]float64 {
	var out [12]float64
	for i := range out {
		out[i] = p.gainsDb[i].load()
	}
	return out
}

// MakeupDb returns the current post-EQ makeup gain in dB.
func (p *Peaking) MakeupDb() float64 { return p.makeup.load() }

func clamp(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
