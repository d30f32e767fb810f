package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	tunedSpectrumFFTDefault = 16384
	vuFFTSize               = 2048
	oscilloscopeSamples     = 2048
	peakDecayPerFrame       = 0.3
)

// HeatStop is one segment boundary of the waterfall's fixed heat palette.
type HeatStop struct {
	Pos     float64
	R, G, B uint8
}

// HeatPalette is the fixed black→blue→cyan→green→yellow→red→white
// waterfall colour ramp, segmented at the tabulated stops.
var HeatPalette = []HeatStop{
	{0.0, 0, 0, 0},
	{0.2, 0, 0, 255},
	{0.4, 0, 255, 255},
	{0.6, 0, 255, 0},
	{0.8, 255, 255, 0},
	{0.95, 255, 0, 0},
	{1.0, 255, 255, 255},
}

// HeatColor maps a normalised magnitude in [0,1] to an RGB colour by
// linear interpolation between the bracketing HeatPalette stops.
func HeatColor(level float64) (r, g, b uint8) {
	if level <= 0 {
		return HeatPalette[0].R, HeatPalette[0].G, HeatPalette[0].B
	}
	if level >= 1 {
		last := HeatPalette[len(HeatPalette)-1]
		return last.R, last.G, last.B
	}
	for i := 0; i < len(HeatPalette)-1; i++ {
		a, b := HeatPalette[i], HeatPalette[i+1]
		if level >= a.Pos && level <= b.Pos {
			span := b.Pos - a.Pos
			t := 0.0
			if span > 0 {
				t = (level - a.Pos) / span
			}
			return lerp8(a.R, b.R, t), lerp8(a.G, b.G, t), lerp8(a.B, b.B, t)
		}
	}
	last := HeatPalette[len(HeatPalette)-1]
	return last.R, last.G, last.B
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + t*(float64(b)-float64(a)))
}

// SpectrumAnalyzer is the tuned-bandwidth FFT analyser fed from the signal
// tap between the source and the effect chain.
type SpectrumAnalyzer struct {
	fftSize int
	peaks   []float64
}

// NewSpectrumAnalyzer builds a SpectrumAnalyzer with fftSize bins (default
// 16384 when fftSize <= 0).
func NewSpectrumAnalyzer(fftSize int) *SpectrumAnalyzer {
	if fftSize <= 0 {
		fftSize = tunedSpectrumFFTDefault
	}
	return &SpectrumAnalyzer{fftSize: fftSize}
}

// Magnitudes runs an unsmoothed FFT over samples (zero-padded or
// truncated to fftSize) and returns byte-quantised magnitude per bin,
// 0-255.
func (s *SpectrumAnalyzer) Magnitudes(samples []float32) []byte {
	windowed := make([]float64, s.fftSize)
	n := len(samples)
	if n > s.fftSize {
		n = s.fftSize
	}
	for i := 0; i < n; i++ {
		windowed[i] = float64(samples[i])
	}

	spectrum := fft.FFTReal(windowed)
	numBins := s.fftSize/2 + 1
	out := make([]byte, numBins)
	for i := 0; i < numBins; i++ {
		mag := cmplxAbs(spectrum[i])
		level := mag * 255
		if level > 255 {
			level = 255
		}
		out[i] = byte(level)
	}
	return out
}

func cmplxAbs(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

// UpdatePeaks decays the per-bin peak tracker by peakDecayPerFrame units
// and raises it to match any bin that exceeds the current peak.
func (s *SpectrumAnalyzer) UpdatePeaks(mags []byte) []float64 {
	if len(s.peaks) != len(mags) {
		s.peaks = make([]float64, len(mags))
	}
	for i, m := range mags {
		s.peaks[i] -= peakDecayPerFrame
		if s.peaks[i] < 0 {
			s.peaks[i] = 0
		}
		if float64(m) > s.peaks[i] {
			s.peaks[i] = float64(m)
		}
	}
	return s.peaks
}

// BarHeight maps a pixel column to an averaged bin magnitude using the
// mapping's bin range spread linearly over canvasWidth.
func BarHeight(mags []byte, mapping FFTBinMapping, x, canvasWidth, canvasHeight int) int {
	if canvasWidth <= 0 || mapping.BinCount <= 0 {
		return 0
	}
	binsPerPixel := float64(mapping.BinCount) / float64(canvasWidth)
	startBinFloat := float64(mapping.StartBin) + float64(x)*binsPerPixel

	lo := int(math.Floor(startBinFloat))
	hi := int(math.Ceil(startBinFloat + binsPerPixel))
	if lo < 0 {
		lo = 0
	}
	if hi > len(mags) {
		hi = len(mags)
	}
	if hi <= lo {
		if lo < len(mags) {
			hi = lo + 1
		} else {
			return 0
		}
	}

	sum := 0
	for i := lo; i < hi; i++ {
		sum += int(mags[i])
	}
	avg := float64(sum) / float64(hi-lo)
	return int(avg / 255 * float64(canvasHeight))
}

// BarHue returns the green→red hue for a 0-255 magnitude level.
func BarHue(level byte) float64 {
	return 120 * (1 - float64(level)/255)
}

// DBGridLines are the fixed dB labels drawn on the tuned spectrum.
var DBGridLines = []int{0, -10, -20, -30, -40, -50, -60}

// VUAnalyzer is fed from the post-effects gain output so the meter
// reflects what the user hears before the sink.
type VUAnalyzer struct {
	fftSize int
}

// NewVUAnalyzer builds a VUAnalyzer with the fixed 2048-bin FFT size.
func NewVUAnalyzer() *VUAnalyzer {
	return &VUAnalyzer{fftSize: vuFFTSize}
}

// Peak returns the peak absolute sample amplitude in samples.
func (v *VUAnalyzer) Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		a := s
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return peak
}

// Oscilloscope renders a zoomed window of the time-domain tap buffer.
type Oscilloscope struct {
	buffer []float32
}

// NewOscilloscope builds an Oscilloscope reading the fixed 2048-sample
// time-domain buffer from the spectrum analyser's tap.
func NewOscilloscope() *Oscilloscope {
	return &Oscilloscope{buffer: make([]float32, oscilloscopeSamples)}
}

// Feed stores the latest time-domain samples (most recent
// oscilloscopeSamples retained).
func (o *Oscilloscope) Feed(samples []float32) {
	if len(samples) >= len(o.buffer) {
		copy(o.buffer, samples[len(samples)-len(o.buffer):])
		return
	}
	copy(o.buffer, o.buffer[len(samples):])
	copy(o.buffer[len(o.buffer)-len(samples):], samples)
}

// DisplayedSamples returns the centred window of samples to draw for a
// zoom slider value in [1,100]: fftSize / (101 - slider) samples.
func (o *Oscilloscope) DisplayedSamples(zoomSlider int) []float32 {
	if zoomSlider < 1 {
		zoomSlider = 1
	}
	if zoomSlider > 100 {
		zoomSlider = 100
	}
	count := oscilloscopeSamples / (101 - zoomSlider)
	if count > len(o.buffer) {
		count = len(o.buffer)
	}
	start := (len(o.buffer) - count) / 2
	return o.buffer[start : start+count]
}

// WaterfallRow renders one row of contrast/intensity-adjusted, palette
// mapped pixels from a magnitude row (already averaged per pixel).
func WaterfallRow(mags []byte, contrast float64, intensity float64) [][3]uint8 {
	row := make([][3]uint8, len(mags))
	for i, m := range mags {
		v := float64(m)
		if v < contrast {
			v = 0
		} else if contrast < 255 {
			v = (v - contrast) / (255 - contrast) * 255
		}

		if intensity < 0 {
			v = v * (1 + intensity)
		} else {
			v = v * (1 + 2*intensity)
			if v > 255 {
				v = 255
			}
		}

		r, g, b := HeatColor(v / 255)
		row[i] = [3]uint8{r, g, b}
	}
	return row
}
