// Package meter implements the signal strength meter: dBFS and SNR modes
// with exponential smoothing and UI colour/percentage mapping.
package meter

import (
	"sync"
	"time"
)

// Mode selects what the meter displays.
type Mode int

const (
	ModeDBFS Mode = iota
	ModeSNR
)

const updateThrottle = 33 * time.Millisecond

// SignalMeter computes smoothed peak level and maps it to a display
// percentage and colour, throttled to a fixed update rate.
type SignalMeter struct {
	mu sync.Mutex

	mode Mode

	smoothedPeakDb float64
	noiseFloorDb   float64

	lastUpdate time.Time
	now        func() time.Time
}

// NewSignalMeter creates a SignalMeter in dBFS mode using the real clock.
func NewSignalMeter() *SignalMeter {
	return &SignalMeter{mode: ModeDBFS, smoothedPeakDb: -120, now: time.Now}
}

func (m *SignalMeter) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// Update blends a new instantaneous peak dBFS reading into the smoothed
// peak (30% new reading, 70% previous value per accepted update) and records the current noise floor (from the
// full-band spectrum client's rolling minimum). It returns false when the
// update arrived before the 33ms display throttle elapsed and should be
// skipped by the caller.
func (m *SignalMeter) Update(peakDb, noiseFloorDb float64) (Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !m.lastUpdate.IsZero() && now.Sub(m.lastUpdate) < updateThrottle {
		return Reading{}, false
	}
	m.lastUpdate = now

	const smoothingTau = 0.3
	m.smoothedPeakDb = (1-smoothingTau)*m.smoothedPeakDb + smoothingTau*peakDb
	m.noiseFloorDb = noiseFloorDb

	return m.reading(), true
}

// Reading is one throttled meter sample ready for display.
type Reading struct {
	Mode       Mode
	Value      float64
	Percentage float64
	Color      string
	Flashing   bool
}

func (m *SignalMeter) reading() Reading {
	switch m.mode {
	case ModeSNR:
		snr := m.smoothedPeakDb - m.noiseFloorDb
		return Reading{
			Mode:       ModeSNR,
			Value:      snr,
			Percentage: snrPercentage(snr),
			Color:      snrColor(snr),
			Flashing:   false,
		}
	default:
		return Reading{
			Mode:       ModeDBFS,
			Value:      m.smoothedPeakDb,
			Percentage: dbfsPercentage(m.smoothedPeakDb),
			Color:      dbfsColor(m.smoothedPeakDb),
			Flashing:   m.smoothedPeakDb > -30,
		}
	}
}

// dbfsPercentage segments [-120,-80]->0-40%, [-80,-60]->40-80%, [-60,-20]->80-100%.
func dbfsPercentage(db float64) float64 {
	switch {
	case db <= -120:
		return 0
	case db <= -80:
		return lerpPercent(db, -120, -80, 0, 40)
	case db <= -60:
		return lerpPercent(db, -80, -60, 40, 80)
	case db <= -20:
		return lerpPercent(db, -60, -20, 80, 100)
	default:
		return 100
	}
}

// snrPercentage segments [0,20]->0-40%, [20,40]->40-80%, [40,60]->80-100%.
func snrPercentage(db float64) float64 {
	switch {
	case db <= 0:
		return 0
	case db <= 20:
		return lerpPercent(db, 0, 20, 0, 40)
	case db <= 40:
		return lerpPercent(db, 20, 40, 40, 80)
	case db <= 60:
		return lerpPercent(db, 40, 60, 80, 100)
	default:
		return 100
	}
}

func lerpPercent(v, lo, hi, pctLo, pctHi float64) float64 {
	if hi == lo {
		return pctLo
	}
	t := (v - lo) / (hi - lo)
	return pctLo + t*(pctHi-pctLo)
}

func dbfsColor(db float64) string {
	switch {
	case db >= -70:
		return "green"
	case db >= -85:
		return "yellow"
	default:
		return "red"
	}
}

func snrColor(db float64) string {
	switch {
	case db >= 30:
		return "green"
	case db >= 15:
		return "yellow"
	default:
		return "red"
	}
}
