// Package analyzer implements the tuned-bandwidth and full-band spectrum
// analysers: frequency-to-bin mapping, spectrum/waterfall rendering
// support, and the oscilloscope time-domain tap.
package analyzer

import "math"

// BandSpec is the signed low/high audio-frequency pair describing the
// tuned passband, as presented by the radio daemon. Invariant: Low <= High.
type BandSpec struct {
	Low  int
	High int
}

// FFTBinMapping is the derived bin range for a BandSpec at a given sample
// rate and FFT size.
type FFTBinMapping struct {
	StartBin     int
	BinCount     int
	BinStartFreq float64
	BinEndFreq   float64
	CWOffsetHz   int
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MapBand derives an FFTBinMapping from spec at sampleRate with fftSize
// bins, applying the CW-offset / zero-spanning / LSB / USB decision table:
//
//   - both endpoints within ±500 Hz of zero (CW): offset 500 Hz, range
//     centred on that offset;
//   - spans zero (e.g. AM): no offset, range from 0 to max(|low|,|high|);
//   - both endpoints ≤ 0 (LSB): no offset, range is the mirrored positive
//     magnitudes;
//   - otherwise (USB or positive): no offset, range is [max(0,low), high].
func MapBand(spec BandSpec, sampleRate float64, fftSize int) FFTBinMapping {
	low, high := spec.Low, spec.High
	maxAbs := absInt(low)
	if absInt(high) > maxAbs {
		maxAbs = absInt(high)
	}

	var cwOffset, binStart, binEnd int
	switch {
	case absInt(low) < 500 && absInt(high) < 500:
		cwOffset = 500
		binStart = maxInt(0, 500-maxAbs)
		binEnd = 500 + maxAbs

	case low < 0 && high > 0:
		cwOffset = 0
		binStart = 0
		binEnd = maxInt(absInt(low), absInt(high))

	case low < 0 && high <= 0:
		cwOffset = 0
		binStart = absInt(high)
		binEnd = absInt(low)

	default:
		cwOffset = 0
		binStart = maxInt(0, low)
		binEnd = high
	}

	nyquist := sampleRate / 2
	// bufferLength is the number of unique real-FFT bins up to Nyquist.
	bufferLength := float64(fftSize) / 2

	startBin := int(math.Floor(float64(binStart) * bufferLength / nyquist))
	binsForBandwidth := int(math.Floor(float64(binEnd-binStart) * bufferLength / nyquist))

	maxBin := fftSize / 2
	if startBin < 0 {
		startBin = 0
	}
	if startBin > maxBin {
		startBin = maxBin
	}
	if startBin+binsForBandwidth > maxBin {
		binsForBandwidth = maxBin - startBin
	}
	if binsForBandwidth < 0 {
		binsForBandwidth = 0
	}

	return FFTBinMapping{
		StartBin:     startBin,
		BinCount:     binsForBandwidth,
		BinStartFreq: float64(binStart),
		BinEndFreq:   float64(binEnd),
		CWOffsetHz:   cwOffset,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// DisplayRange returns the [low, high] range presented to the user for
// sliders and labels: the BandSpec shifted by the CW offset.
func DisplayRange(spec BandSpec, mapping FFTBinMapping) (low, high int) {
	return mapping.CWOffsetHz + spec.Low, mapping.CWOffsetHz + spec.High
}

// PixelToFreq maps a horizontal pixel position linearly over
// [0, canvasWidth) onto [displayLow, displayHigh].
func PixelToFreq(pixel, canvasWidth int, displayLow, displayHigh int) float64 {
	if canvasWidth <= 0 {
		return float64(displayLow)
	}
	frac := float64(pixel) / float64(canvasWidth)
	return float64(displayLow) + frac*float64(displayHigh-displayLow)
}

// FreqToPixel is the inverse of PixelToFreq.
func FreqToPixel(freq float64, canvasWidth int, displayLow, displayHigh int) int {
	if displayHigh == displayLow {
		return 0
	}
	frac := (freq - float64(displayLow)) / float64(displayHigh-displayLow)
	return int(math.Round(frac * float64(canvasWidth)))
}

// ClampBandpassClick restricts a click-to-filter Hz value to
// [displayLow+50, displayHigh-50], the bandpass clamping rule.
func ClampBandpassClick(freq float64, displayLow, displayHigh int) float64 {
	lo := float64(displayLow) + 50
	hi := float64(displayHigh) - 50
	if freq < lo {
		return lo
	}
	if freq > hi {
		return hi
	}
	return freq
}

// ClampNotchClick restricts a click-to-filter Hz value to
// [displayLow, displayHigh], the notch clamping rule.
func ClampNotchClick(freq float64, displayLow, displayHigh int) float64 {
	if freq < float64(displayLow) {
		return float64(displayLow)
	}
	if freq > float64(displayHigh) {
		return float64(displayHigh)
	}
	return freq
}
