package effects

import (
	"fmt"
	"math"

	"github.com/hfdsp/receivercore/internal/audio"
)

// SquelchState is one of the 4 gate states.
type SquelchState int

const (
	SquelchOpen SquelchState = iota
	SquelchClosing
	SquelchClosed
	SquelchOpening
)

const (
	squelchWindow          = 2048
	squelchRMSTau          = 0.3
	squelchMinHysteresisDb = 1
)

// Squelch is an RMS-gated ramp with hysteresis between open and close
// thresholds.
type Squelch struct {
	sampleRate int
	enabled    atomicBool

	openDb    atomicFloat
	closeDb   atomicFloat
	attackMs  atomicFloat
	releaseMs atomicFloat

	rmsEnvelope float64
	state       SquelchState
	gain        float64
	targetGain  float64
	rampStep    float64
}

// NewSquelch builds a Squelch gate with factory thresholds open=-50dB,
// close=-55dB, attack 10ms, release 100ms, starting fully open.
func NewSquelch(sampleRate int) *Squelch {
	s := &Squelch{sampleRate: sampleRate, state: SquelchOpen, gain: 1, targetGain: 1}
	s.enabled.store(false)
	s.openDb.store(-50)
	s.closeDb.store(-55)
	s.attackMs.store(10)
	s.releaseMs.store(100)
	return s
}

func (s *Squelch) ID() audio.EffectID { return audio.EffectSquelch }
func (s *Squelch) Enabled() bool      { return s.enabled.load() }
func (s *Squelch) SetEnabled(on bool) { s.enabled.store(on) }

func rmsToDb(rms float64) float64 {
	if rms <= 0 {
		return -120
	}
	return 20 * math.Log10(rms)
}

// Apply measures a smoothed RMS over the buffer, drives the 4-state gate,
// and ramps gain accordingly.
func (s *Squelch) Apply(in []float32) []float32 {
	out := make([]float32, len(in))
	if !s.enabled.load() {
		copy(out, in)
		return out
	}

	openDb, closeDb := s.openDb.load(), s.closeDb.load()
	attackSamples := s.attackMs.load() / 1000 * float64(s.sampleRate)
	releaseSamples := s.releaseMs.load() / 1000 * float64(s.sampleRate)

	for i, x := range in {
		sq := float64(x) * float64(x)
		s.rmsEnvelope = (1-squelchRMSTau)*s.rmsEnvelope + squelchRMSTau*sq
		levelDb := rmsToDb(math.Sqrt(s.rmsEnvelope))

		switch s.state {
		case SquelchClosed, SquelchClosing:
			if levelDb >= openDb {
				s.state = SquelchOpening
				s.targetGain = 1
				if attackSamples > 0 {
					s.rampStep = 1 / attackSamples
				} else {
					s.rampStep = 1
				}
			}
		case SquelchOpen, SquelchOpening:
			if levelDb < closeDb {
				s.state = SquelchClosing
				s.targetGain = 0
				if releaseSamples > 0 {
					s.rampStep = 1 / releaseSamples
				} else {
					s.rampStep = 1
				}
			}
		}

		if s.gain < s.targetGain {
			s.gain += s.rampStep
			if s.gain >= s.targetGain {
				s.gain = s.targetGain
				if s.state == SquelchOpening {
					s.state = SquelchOpen
				}
			}
		} else if s.gain > s.targetGain {
			s.gain -= s.rampStep
			if s.gain <= s.targetGain {
				s.gain = s.targetGain
				if s.state == SquelchClosing {
					s.state = SquelchClosed
				}
			}
		}

		out[i] = float32(float64(x) * s.gain)
	}
	return out
}

// State reports the current gate state.
func (s *Squelch) State() SquelchState { return s.state }

// AttackMs returns the current attack time, the input the latency
// accountant's squelch formula depends on.
func (s *Squelch) AttackMs() float64 { return s.attackMs.load() }

// OpenDb returns the current open threshold in dB.
func (s *Squelch) OpenDb() float64 { return s.openDb.load() }

// CloseDb returns the current close threshold in dB.
func (s *Squelch) CloseDb() float64 { return s.closeDb.load() }

// ReleaseMs returns the current release time.
func (s *Squelch) ReleaseMs() float64 { return s.releaseMs.load() }

// SetParam accepts "open" (dB), "close" (dB, must stay ≥ hysteresis below
// open), "attack" (ms), and "release" (ms).
func (s *Squelch) SetParam(name string, value float64) error {
	switch name {
	case "open":
		v, clamped := clamp(value, -90, 0)
		s.openDb.store(v)
		if clamped {
			return fmt.Errorf("%w: open", audio.ErrOutOfRange)
		}
	case "close":
		maxClose := s.openDb.load() - squelchMinHysteresisDb
		v, clamped := clamp(value, -90, maxClose)
		s.closeDb.store(v)
		if clamped {
			return fmt.Errorf("%w: close", audio.ErrOutOfRange)
		}
	case "attack":
		v, clamped := clamp(value, 1, 1000)
		s.attackMs.store(v)
		if clamped {
			return fmt.Errorf("%w: attack", audio.ErrOutOfRange)
		}
	case "release":
		v, clamped := clamp(value, 1, 2000)
		s.releaseMs.store(v)
		if clamped {
			return fmt.Errorf("%w: release", audio.ErrOutOfRange)
		}
	default:
		return fmt.Errorf("effects: unknown squelch parameter %q", name)
	}
	return nil
}

// LatencySamples converts the attackMs parameter to samples, matching the
// published latency-accountant formula for this node.
func (s *Squelch) LatencySamples(sampleRate int) int {
	return int(s.attackMs.load() / 1000 * float64(sampleRate))
}
