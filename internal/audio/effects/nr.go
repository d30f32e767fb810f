package effects

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/hfdsp/receivercore/internal/audio"
	"github.com/mjibson/go-dsp/fft"
)

const (
	nrFFTSize       = 2048
	nrOverlapFactor = 4
	nrHopSize       = nrFFTSize / nrOverlapFactor

	// colaNorm compensates for the Hann window being applied on both
	// analysis and synthesis at 4x overlap; 1.5 keeps the reconstructed
	// signal at unity gain.
	colaNorm = 1.5

	nrAdaptBase    = 0.01
	nrSignalThresh = 2.0
)

// NR is the FFT overlap-add spectral subtraction noise reduction node.
type NR struct {
	sampleRate int
	enabled    atomicBool

	strength atomicFloat // [0, 1]
	floorDb  atomicFloat // [-40, 0]
	adaptPct atomicFloat // user adapt-rate, percent

	window []float64

	inputBuf  []float32
	outputBuf []float32
	noise     []float64 // magnitude noise estimate per bin
}

// NewNR builds an NR node at sampleRate with factory defaults: strength
// 0.5, floor -20 dB, adapt rate 1.0%.
func NewNR(sampleRate int) *NR {
	n := &NR{
		sampleRate: sampleRate,
		window:     make([]float64, nrFFTSize),
		inputBuf:   make([]float32, nrFFTSize),
		outputBuf:  make([]float32, nrFFTSize),
		noise:      make([]float64, nrFFTSize/2+1),
	}
	n.enabled.store(true)
	n.strength.store(0.5)
	n.floorDb.store(-20)
	n.adaptPct.store(1.0)
	for i := range n.window {
		n.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(nrFFTSize-1)))
	}
	return n
}

func (n *NR) ID() audio.EffectID { return audio.EffectNR }
func (n *NR) Enabled() bool      { return n.enabled.load() }
func (n *NR) SetEnabled(on bool) { n.enabled.store(on) }

// Apply runs the overlap-add loop, consuming input in hop-sized chunks and
// producing output of the same total length.
func (n *NR) Apply(in []float32) []float32 {
	out := make([]float32, len(in))
	pos := 0
	for pos < len(in) {
		chunk := nrHopSize
		if pos+chunk > len(in) {
			chunk = len(in) - pos
		}

		copy(n.inputBuf, n.inputBuf[chunk:])
		copy(n.inputBuf[nrFFTSize-chunk:], in[pos:pos+chunk])

		n.processFrame()

		copy(out[pos:pos+chunk], n.outputBuf[:chunk])
		copy(n.outputBuf, n.outputBuf[nrHopSize:])
		for i := nrFFTSize - nrHopSize; i < nrFFTSize; i++ {
			n.outputBuf[i] = 0
		}

		pos += chunk
	}
	return out
}

func (n *NR) processFrame() {
	windowed := make([]float64, nrFFTSize)
	for i := range windowed {
		windowed[i] = float64(n.inputBuf[i]) * n.window[i]
	}

	spectrum := fft.FFTReal(windowed)
	numBins := nrFFTSize/2 + 1

	alpha := n.adaptPct.load() / 100.0 * 10 * nrAdaptBase
	strength := n.strength.load()
	floorLinear := math.Pow(10, n.floorDb.load()/20)

	for k := 0; k < numBins; k++ {
		mag := cmplx.Abs(spectrum[k])

		if mag < nrSignalThresh*n.noise[k] || n.noise[k] == 0 {
			n.noise[k] = (1-alpha)*n.noise[k] + alpha*mag
		}

		gain := 1.0
		if mag > 1e-12 {
			gain = 1 - strength*n.noise[k]/(mag+1e-12)
		}
		if gain < floorLinear {
			gain = floorLinear
		}

		if n.enabled.load() {
			spectrum[k] = complex(real(spectrum[k])*gain, imag(spectrum[k])*gain)
		}
		if k > 0 && k < nrFFTSize-k {
			conj := complex(real(spectrum[k]), -imag(spectrum[k]))
			spectrum[nrFFTSize-k] = conj
		}
	}

	timeDomain := fft.IFFT(spectrum)
	for i := 0; i < nrFFTSize; i++ {
		n.outputBuf[i] += float32(real(timeDomain[i]) * n.window[i] / colaNorm)
	}
}

// SetParam accepts "strength" [0,1], "floor" (dB, [-40,0]), and
// "adaptRate" (percent).
func (n *NR) SetParam(name string, value float64) error {
	switch name {
	case "strength":
		v, clamped := clamp(value, 0, 1)
		n.strength.store(v)
		if clamped {
			return fmt.Errorf("%w: strength", audio.ErrOutOfRange)
		}
	case "floor":
		v, clamped := clamp(value, -40, 0)
		n.floorDb.store(v)
		if clamped {
			return fmt.Errorf("%w: floor", audio.ErrOutOfRange)
		}
	case "adaptRate":
		v, clamped := clamp(value, 0.1, 5.0)
		n.adaptPct.store(v)
		if clamped {
			return fmt.Errorf("%w: adaptRate", audio.ErrOutOfRange)
		}
	default:
		return fmt.Errorf("effects: unknown nr parameter %q", name)
	}
	return nil
}

// LatencySamples returns fftSize + ringSize (each 2048), matching the
// overlap-add buffering depth.
func (n *NR) LatencySamples(sampleRate int) int { return nrFFTSize + nrFFTSize }

// Strength returns the current subtraction strength.
func (n *NR) Strength() float64 { return n.strength.load() }

// FloorDb returns the current spectral floor in dB.
func (n *NR) FloorDb() float64 { return n.floorDb.load() }

// AdaptRate returns the current noise-profile adapt rate in percent.
func (n *NR) AdaptRate() float64 { return n.adaptPct.load() }
