package effects

import (
	"fmt"

	"github.com/hfdsp/receivercore/internal/audio"
)

const (
	bandpassMinStages = 1
	bandpassMaxStages = 8
	bandpassDefault   = 4
)

// Bandpass is a cascade of identical biquad bandpass sections. Q is
// derived automatically from center, width, and stage count, or scaled by
// a manual multiplier — this adopts the stage-scaling formula
// (center / width × stages / 2), the variant that scales with cascade
// depth.
type Bandpass struct {
	sampleRate int
	enabled    atomicBool

	centerHz atomicFloat
	widthHz  atomicFloat
	stages   atomicFloat
	manualQ  atomicFloat
	manual   atomicBool

	sections [bandpassMaxStages]biquad
}

// NewBandpass builds a 4-stage bandpass centered at centerHz with the
// given passband width, in automatic-Q mode.
func NewBandpass(sampleRate int, centerHz, widthHz float64) *Bandpass {
	bp := &Bandpass{sampleRate: sampleRate}
	bp.enabled.store(true)
	bp.centerHz.store(centerHz)
	bp.widthHz.store(widthHz)
	bp.stages.store(bandpassDefault)
	bp.manualQ.store(1)
	bp.recompute()
	return bp
}

func (bp *Bandpass) ID() audio.EffectID { return audio.EffectBandpass }
func (bp *Bandpass) Enabled() bool      { return bp.enabled.load() }
func (bp *Bandpass) SetEnabled(on bool) { bp.enabled.store(on) }

func (bp *Bandpass) autoQ() float64 {
	center, width, stages := bp.centerHz.load(), bp.widthHz.load(), bp.stages.load()
	if width <= 0 {
		width = 1
	}
	q := center / width * stages / 2
	if bp.manual.load() {
		q *= bp.manualQ.load()
	}
	if q < 0.7 {
		q = 0.7
	}
	return q
}

func (bp *Bandpass) recompute() {
	q := bp.autoQ()
	center := bp.centerHz.load()
	n := int(bp.stages.load())
	if n < bandpassMinStages {
		n = bandpassMinStages
	}
	if n > bandpassMaxStages {
		n = bandpassMaxStages
	}
	for i := 0; i < n; i++ {
		bp.sections[i].setBandpass(center, q, bp.sampleRate)
	}
}

// Apply cascades the active stage count through the bandpass sections.
func (bp *Bandpass) Apply(in []float32) []float32 {
	n := int(bp.stages.load())
	if n < bandpassMinStages {
		n = bandpassMinStages
	}
	if n > bandpassMaxStages {
		n = bandpassMaxStages
	}
	out := make([]float32, len(in))
	for i, x := range in {
		v := float64(x)
		for s := 0; s < n; s++ {
			v = bp.sections[s].process(v)
		}
		out[i] = float32(v)
	}
	return out
}

// SetParam accepts "center" (Hz), "width" (Hz), "stages" (1..8),
// "manualQ" (multiplier), and "manual" (0/1, manual-Q mode toggle).
func (bp *Bandpass) SetParam(name string, value float64) error {
	switch name {
	case "center":
		bp.centerHz.store(value)
	case "width":
		v, clamped := clamp(value, 10, 8000)
		bp.widthHz.store(v)
		if clamped {
			return fmt.Errorf("%w: width", audio.ErrOutOfRange)
		}
	case "stages":
		v, clamped := clamp(value, bandpassMinStages, bandpassMaxStages)
		bp.stages.store(v)
		if clamped {
			return fmt.Errorf("%w: stages", audio.ErrOutOfRange)
		}
	case "manualQ":
		v, clamped := clamp(value, 0.1, 10)
		bp.manualQ.store(v)
		if clamped {
			return fmt.Errorf("%w: manualQ", audio.ErrOutOfRange)
		}
	case "manual":
		bp.manual.store(value != 0)
	default:
		return fmt.Errorf("effects: unknown bandpass parameter %q", name)
	}
	bp.recompute()
	return nil
}

// LatencySamples returns one sample of latency per cascaded stage.
func (bp *Bandpass) LatencySamples(sampleRate int) int {
	n := int(bp.stages.load())
	if n < bandpassMinStages {
		n = bandpassMinStages
	}
	return n
}

// CenterHz returns the current passband center.
func (bp *Bandpass) CenterHz() float64 { return bp.centerHz.load() }

// WidthHz returns the current passband width.
func (bp *Bandpass) WidthHz() float64 { return bp.widthHz.load() }

// Stages returns the active cascade depth.
func (bp *Bandpass) Stages() int { return int(bp.stages.load()) }

// Manual reports whether the manual-Q multiplier is in effect.
func (bp *Bandpass) Manual() bool { return bp.manual.load() }

// ManualQ returns the manual Q multiplier.
func (bp *Bandpass) ManualQ() float64 { return bp.manualQ.load() }
