package effects

import (
	"fmt"

	"github.com/hfdsp/receivercore/internal/audio"
)

// Gain is the terminal volume/mute stage: a scalar in [0,1], or 0 when
// muted.
type Gain struct {
	level atomicFloat
	muted atomicBool
}

// NewGain builds a Gain node at full volume, unmuted.
func NewGain() *Gain {
	g := &Gain{}
	g.level.store(1)
	return g
}

func (g *Gain) ID() audio.EffectID { return audio.EffectGain }
func (g *Gain) Enabled() bool      { return true }
func (g *Gain) SetEnabled(bool)    {}

// Apply scales every sample by the current level, or by 0 when muted.
func (g *Gain) Apply(in []float32) []float32 {
	level := float32(g.level.load())
	if g.muted.load() {
		level = 0
	}
	out := make([]float32, len(in))
	for i, x := range in {
		out[i] = x * level
	}
	return out
}

// SetParam accepts "level" ([0,1]) and "mute" (0/1).
func (g *Gain) SetParam(name string, value float64) error {
	switch name {
	case "level":
		v, clamped := clamp(value, 0, 1)
		g.level.store(v)
		if clamped {
			return fmt.Errorf("%w: level", audio.ErrOutOfRange)
		}
	case "mute":
		g.muted.store(value != 0)
	default:
		return fmt.Errorf("effects: unknown gain parameter %q", name)
	}
	return nil
}

// LatencySamples is zero: a plain scalar multiply introduces no delay.
func (g *Gain) LatencySamples(sampleRate int) int { return 0 }

// Level returns the current volume scalar.
func (g *Gain) Level() float64 { return g.level.load() }

// Muted reports the mute state.
func (g *Gain) Muted() bool { return g.muted.load() }
