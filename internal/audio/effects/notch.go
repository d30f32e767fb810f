package effects

import (
	"fmt"

	"github.com/hfdsp/receivercore/internal/audio"
)

const (
	notchStages = 6
	maxNotches  = 5
)

type notchEntry struct {
	active   atomicBool
	centerHz atomicFloat
	widthHz  atomicFloat
	sections [notchStages]biquad
}

func (n *notchEntry) recompute(sampleRate int) {
	center, width := n.centerHz.load(), n.widthHz.load()
	if width <= 0 {
		width = 1
	}
	q := center / (width * 3)
	if q < 0.7 {
		q = 0.7
	}
	for i := range n.sections {
		n.sections[i].setNotch(center, q, sampleRate)
	}
}

// Notch holds up to 5 independent notch filters, each a cascade of 6
// biquad notch sections sharing a single center and Q.
type Notch struct {
	sampleRate int
	enabled    atomicBool
	entries    [maxNotches]notchEntry
}

// NewNotch builds an empty Notch node with every slot disabled.
func NewNotch(sampleRate int) *Notch {
	n := &Notch{sampleRate: sampleRate}
	n.enabled.store(true)
	return n
}

func (n *Notch) ID() audio.EffectID { return audio.EffectNotch }
func (n *Notch) Enabled() bool      { return n.enabled.load() }
func (n *Notch) SetEnabled(on bool) { n.enabled.store(on) }

// AddNotch activates the lowest free slot at centerHz/widthHz, or returns
// an error if all 5 slots are already in use.
func (n *Notch) AddNotch(centerHz, widthHz float64) (int, error) {
	for i := range n.entries {
		if !n.entries[i].active.load() {
			n.entries[i].centerHz.store(centerHz)
			n.entries[i].widthHz.store(widthHz)
			n.entries[i].recompute(n.sampleRate)
			n.entries[i].active.store(true)
			return i, nil
		}
	}
	return -1, fmt.Errorf("effects: notch: all %d slots in use", maxNotches)
}

// RemoveNotch deactivates slot i.
func (n *Notch) RemoveNotch(i int) error {
	if i < 0 || i >= maxNotches {
		return fmt.Errorf("effects: notch: slot %d out of range", i)
	}
	n.entries[i].active.store(false)
	return nil
}

// Apply cascades every active notch's 6 sections over the buffer.
func (n *Notch) Apply(in []float32) []float32 {
	out := make([]float32, len(in))
	copy(out, in)
	for i := range n.entries {
		if !n.entries[i].active.load() {
			continue
		}
		for j, x := range out {
			v := float64(x)
			for s := range n.entries[i].sections {
				v = n.entries[i].sections[s].process(v)
			}
			out[j] = float32(v)
		}
	}
	return out
}

// SetParam accepts "slot{0..4}.center" and "slot{0..4}.width" for any
// slot; it stores the value whether or not the slot is active.
func (n *Notch) SetParam(name string, value float64) error {
	for i := range n.entries {
		centerName := fmt.Sprintf("slot%d.center", i)
		widthName := fmt.Sprintf("slot%d.width", i)
		switch name {
		case centerName:
			n.entries[i].centerHz.store(value)
			n.entries[i].recompute(n.sampleRate)
			return nil
		case widthName:
			v, clamped := clamp(value, 10, 4000)
			n.entries[i].widthHz.store(v)
			n.entries[i].recompute(n.sampleRate)
			if clamped {
				return fmt.Errorf("%w: %s", audio.ErrOutOfRange, widthName)
			}
			return nil
		}
	}
	return fmt.Errorf("effects: unknown notch parameter %q", name)
}

// NotchSlot is a read-only snapshot of one notch entry.
type NotchSlot struct {
	Active   bool
	CenterHz float64
	WidthHz  float64
}

// Slots returns a snapshot of all 5 notch slots, active or not.
func (n *Notch) Slots() [maxNotches]NotchSlot {
	var out [maxNotches]NotchSlot
	for i := range n.entries {
		out[i] = NotchSlot{
			Active:   n.entries[i].active.load(),
			CenterHz: n.entries[i].centerHz.load(),
			WidthHz:  n.entries[i].widthHz.load(),
		}
	}
	return out
}

// LatencySamples returns 6 samples per active notch.
func (n *Notch) LatencySamples(sampleRate int) int {
	active := 0
	for i := range n.entries {
		if n.entries[i].active.load() {
			active++
		}
	}
	return notchStages * active
}
