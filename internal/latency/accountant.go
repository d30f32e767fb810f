// Package latency computes and broadcasts per-effect and total processing
// latency for the active effect chain.
package latency

import "sync"

// Inputs carries the parameters the per-effect latency formulas depend on.
// An effect whose Enabled flag is false is not counted; a zero FFTSize or
// RingSize is counted as 2048.
type Inputs struct {
	SampleRate int

	EQEnabled bool

	BandpassEnabled bool
	BandpassStages  int

	NotchEnabled bool
	NotchCount   int

	NREnabled bool
	FFTSize   int
	RingSize  int

	CompressorEnabled   bool
	CompressorAttackSec float64

	StereoEnabled bool
	StereoDelayMs float64

	SquelchEnabled  bool
	SquelchAttackMs float64
}

// Breakdown is the computed per-effect latency in milliseconds.
type Breakdown struct {
	EQMs         float64
	BandpassMs   float64
	NotchMs      float64
	NRMs         float64
	CompressorMs float64
	StereoMs     float64
	SquelchMs    float64
	TotalMs      float64
}

// Compute applies the published per-effect latency formulas and sums the
// enabled ones.
func Compute(in Inputs) Breakdown {
	var b Breakdown
	sr := float64(in.SampleRate)
	if sr <= 0 {
		return b
	}

	if in.EQEnabled {
		b.EQMs = 12 / sr * 1000
	}
	if in.BandpassEnabled {
		b.BandpassMs = float64(in.BandpassStages) / sr * 1000
	}
	if in.NotchEnabled {
		b.NotchMs = 6 * float64(in.NotchCount) / sr * 1000
	}
	if in.NREnabled {
		fftSize, ringSize := in.FFTSize, in.RingSize
		if fftSize == 0 {
			fftSize = 2048
		}
		if ringSize == 0 {
			ringSize = 2048
		}
		b.NRMs = float64(fftSize+ringSize) / sr * 1000
	}
	if in.CompressorEnabled {
		b.CompressorMs = in.CompressorAttackSec*1000 + 5
	}
	if in.StereoEnabled {
		b.StereoMs = in.StereoDelayMs
	}
	if in.SquelchEnabled {
		b.SquelchMs = in.SquelchAttackMs
	}

	b.TotalMs = b.EQMs + b.BandpassMs + b.NotchMs + b.NRMs + b.CompressorMs + b.StereoMs + b.SquelchMs
	return b
}

// ChangeEvent is broadcast whenever the total is recomputed.
type ChangeEvent struct {
	Breakdown Breakdown
}

// Listener receives latency change events.
type Listener func(ChangeEvent)

// Accountant recomputes the latency breakdown on every enable/disable or
// parameter update and broadcasts a single change event to every listener
// registered with Subscribe; the latest breakdown is also kept for Last.
type Accountant struct {
	mu        sync.Mutex
	listeners []Listener
	last      Breakdown
}

// NewAccountant creates an empty Accountant.
func NewAccountant() *Accountant {
	return &Accountant{}
}

// Subscribe registers l to receive future change events.
func (a *Accountant) Subscribe(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Recompute applies in to the latency formulas, stores the result, and
// broadcasts it to every subscriber.
func (a *Accountant) Recompute(in Inputs) Breakdown {
	b := Compute(in)

	a.mu.Lock()
	a.last = b
	listeners := make([]Listener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, l := range listeners {
		l(ChangeEvent{Breakdown: b})
	}
	return b
}

// Last returns the most recently computed breakdown.
func (a *Accountant) Last() Breakdown {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
