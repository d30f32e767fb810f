package analyzer

import (
	"math"
	"testing"
)

func TestHeatColor_BoundsClampToBlackAndWhite(t *testing.T) {
	r, g, b := HeatColor(0)
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("level 0 = (%d,%d,%d), want black", r, g, b)
	}
	r, g, b = HeatColor(1)
	if r != 255 || g != 255 || b != 255 {
		t.Fatalf("level 1 = (%d,%d,%d), want white", r, g, b)
	}
}

func TestHeatColor_MidBlueAtKnownStop(t *testing.T) {
	r, g, b := HeatColor(0.2)
	if r != 0 || g != 0 || b != 255 {
		t.Fatalf("level 0.2 = (%d,%d,%d), want pure blue", r, g, b)
	}
}

func TestSpectrumAnalyzer_MagnitudesLengthIsHalfFFTPlusOne(t *testing.T) {
	a := NewSpectrumAnalyzer(1024)
	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * float64(i) / 32))
	}
	mags := a.Magnitudes(samples)
	if len(mags) != 1024/2+1 {
		t.Fatalf("len(mags) = %d, want %d", len(mags), 1024/2+1)
	}
}

func TestSpectrumAnalyzer_DefaultsFFTSizeWhenNonPositive(t *testing.T) {
	a := NewSpectrumAnalyzer(0)
	if a.fftSize != tunedSpectrumFFTDefault {
		t.Fatalf("fftSize = %d, want default %d", a.fftSize, tunedSpectrumFFTDefault)
	}
}

func TestSpectrumAnalyzer_UpdatePeaksDecaysAndTracksMax(t *testing.T) {
	a := NewSpectrumAnalyzer(64)
	first := a.UpdatePeaks([]byte{100, 50})
	if first[0] != 100 || first[1] != 50 {
		t.Fatalf("first peaks = %v", first)
	}
	second := a.UpdatePeaks([]byte{0, 0})
	if second[0] != 100-peakDecayPerFrame || second[1] != 50-peakDecayPerFrame {
		t.Fatalf("second peaks = %v", second)
	}
}

func TestVUAnalyzer_PeakFindsAbsoluteMax(t *testing.T) {
	v := NewVUAnalyzer()
	peak := v.Peak([]float32{0.1, -0.9, 0.3})
	if peak != 0.9 {
		t.Fatalf("peak = %v, want 0.9", peak)
	}
}

func TestOscilloscope_FeedShortBufferShiftsWindow(t *testing.T) {
	o := NewOscilloscope()
	o.Feed([]float32{1, 2, 3})
	buf := o.DisplayedSamples(100)
	if buf[len(buf)-1] != 3 || buf[len(buf)-2] != 2 {
		t.Fatalf("tail of buffer = %v", buf[len(buf)-3:])
	}
}

func TestOscilloscope_FeedLongBufferTruncatesToTail(t *testing.T) {
	o := NewOscilloscope()
	long := make([]float32, oscilloscopeSamples+10)
	for i := range long {
		long[i] = float32(i)
	}
	o.Feed(long)
	full := o.DisplayedSamples(100)
	if full[len(full)-1] != float32(oscilloscopeSamples+9) {
		t.Fatalf("last sample = %v, want %v", full[len(full)-1], oscilloscopeSamples+9)
	}
}

func TestOscilloscope_DisplayedSamplesZoomShrinksWindow(t *testing.T) {
	o := NewOscilloscope()
	low := o.DisplayedSamples(1)    // fftSize / 100 samples
	high := o.DisplayedSamples(100) // full buffer
	if len(low) >= len(high) {
		t.Fatalf("slider 1 window (%d) should be narrower than slider 100 (%d)", len(low), len(high))
	}
	if len(high) != oscilloscopeSamples {
		t.Fatalf("slider 100 window = %d, want the full %d samples", len(high), oscilloscopeSamples)
	}
}

func TestBarHeight_ZeroCanvasWidthIsZero(t *testing.T) {
	mags := []byte{10, 20, 30}
	h := BarHeight(mags, FFTBinMapping{StartBin: 0, BinCount: 3}, 0, 0, 100)
	if h != 0 {
		t.Fatalf("BarHeight = %d, want 0", h)
	}
}

func TestBarHue_ZeroIsGreenFullIsRed(t *testing.T) {
	if hue := BarHue(0); hue != 120 {
		t.Fatalf("BarHue(0) = %v, want 120", hue)
	}
	if hue := BarHue(255); hue != 0 {
		t.Fatalf("BarHue(255) = %v, want 0", hue)
	}
}
