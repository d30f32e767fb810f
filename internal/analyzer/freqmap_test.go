package analyzer

import "testing"

// TestMapBand_USB implements scenario S1.
func TestMapBand_USB(t *testing.T) {
	mapping := MapBand(BandSpec{Low: 50, High: 2700}, 12000, 16384)

	if mapping.CWOffsetHz != 0 {
		t.Errorf("cwOffset = %d, want 0", mapping.CWOffsetHz)
	}
	if mapping.BinStartFreq != 50 || mapping.BinEndFreq != 2700 {
		t.Errorf("bin freq range = [%v,%v], want [50,2700]", mapping.BinStartFreq, mapping.BinEndFreq)
	}
	if mapping.StartBin != 68 {
		t.Errorf("startBin = %d, want 68", mapping.StartBin)
	}
	// floor(2650 * 8192 / 6000) = floor(3618.13) = 3618.
	if mapping.BinCount != 3618 {
		t.Errorf("binCount = %d, want 3618", mapping.BinCount)
	}
}

// TestMapBand_LSB implements scenario S2: the FFT bin range is identical
// to S1's USB case — the core does not negate frequencies.
func TestMapBand_LSB(t *testing.T) {
	mapping := MapBand(BandSpec{Low: -2700, High: -50}, 12000, 16384)

	if mapping.CWOffsetHz != 0 {
		t.Errorf("cwOffset = %d, want 0", mapping.CWOffsetHz)
	}
	if mapping.BinStartFreq != 50 || mapping.BinEndFreq != 2700 {
		t.Errorf("bin freq range = [%v,%v], want [50,2700]", mapping.BinStartFreq, mapping.BinEndFreq)
	}
	if mapping.StartBin != 68 || mapping.BinCount != 3618 {
		t.Errorf("bin range = [%d,+%d], want [68,+3618]", mapping.StartBin, mapping.BinCount)
	}
}

// TestMapBand_CW implements scenario S3, including the click-to-tune and
// bandpass-clamp follow-on checks.
func TestMapBand_CW(t *testing.T) {
	spec := BandSpec{Low: -200, High: 200}
	mapping := MapBand(spec, 12000, 16384)

	if mapping.CWOffsetHz != 500 {
		t.Fatalf("cwOffset = %d, want 500", mapping.CWOffsetHz)
	}
	if mapping.BinStartFreq != 300 || mapping.BinEndFreq != 700 {
		t.Fatalf("bin freq range = [%v,%v], want [300,700]", mapping.BinStartFreq, mapping.BinEndFreq)
	}

	dispLow, dispHigh := DisplayRange(spec, mapping)
	if dispLow != 300 || dispHigh != 700 {
		t.Fatalf("display range = [%d,%d], want [300,700]", dispLow, dispHigh)
	}

	canvasWidth := 800
	clickFreq := PixelToFreq(canvasWidth/2, canvasWidth, dispLow, dispHigh)
	if clickFreq != 500 {
		t.Fatalf("click at center = %v, want 500", clickFreq)
	}

	clamped := ClampBandpassClick(clickFreq, dispLow, dispHigh)
	if clamped < 350 || clamped > 650 {
		t.Fatalf("bandpass clamp = %v, want within [350,650]", clamped)
	}
}

// TestMapBand_StaysWithinFFTRange implements invariant 3: startBin >= 0
// and startBin+binCount <= fftSize/2 for a variety of BandSpecs.
func TestMapBand_StaysWithinFFTRange(t *testing.T) {
	specs := []BandSpec{
		{Low: 50, High: 2700},
		{Low: -2700, High: -50},
		{Low: -200, High: 200},
		{Low: -6000, High: 6000},
		{Low: -8000, High: 0},
		{Low: 0, High: 8000},
	}
	for _, spec := range specs {
		mapping := MapBand(spec, 12000, 16384)
		if mapping.StartBin < 0 {
			t.Errorf("spec %+v: startBin = %d, want >= 0", spec, mapping.StartBin)
		}
		if mapping.StartBin+mapping.BinCount > 16384/2 {
			t.Errorf("spec %+v: startBin+binCount = %d, want <= %d", spec, mapping.StartBin+mapping.BinCount, 16384/2)
		}
	}
}

// TestPixelFreqRoundTrip implements the round-trip half of invariant 3:
// pixelToFreq(freqToPixel(f, W), W) ~= f within 1 Hz.
func TestPixelFreqRoundTrip(t *testing.T) {
	displayLow, displayHigh := 300, 700
	canvasWidth := 800

	for _, freq := range []float64{300, 450, 500, 650, 699} {
		px := FreqToPixel(freq, canvasWidth, displayLow, displayHigh)
		back := PixelToFreq(px, canvasWidth, displayLow, displayHigh)
		if diff := back - freq; diff > 1 || diff < -1 {
			t.Errorf("round trip for %v Hz: got %v (diff %v)", freq, back, diff)
		}
	}
}

func TestClampNotchClick(t *testing.T) {
	if got := ClampNotchClick(100, 300, 700); got != 300 {
		t.Errorf("below range: got %v, want 300", got)
	}
	if got := ClampNotchClick(900, 300, 700); got != 700 {
		t.Errorf("above range: got %v, want 700", got)
	}
	if got := ClampNotchClick(500, 300, 700); got != 500 {
		t.Errorf("inside range: got %v, want 500", got)
	}
}
