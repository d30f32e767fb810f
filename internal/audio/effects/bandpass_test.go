package effects

import "testing"

// TestBandpass_AutoQFormula checks the resolved Open Question: Q = center /
// width * stages / 2.
func TestBandpass_AutoQFormula(t *testing.T) {
	bp := NewBandpass(12000, 1500, 500)
	got := bp.autoQ()
	want := 1500.0 / 500.0 * bandpassDefault / 2
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("autoQ = %v, want %v", got, want)
	}
}

func TestBandpass_ManualQMultiplier(t *testing.T) {
	bp := NewBandpass(12000, 1500, 500)
	_ = bp.SetParam("manual", 1)
	_ = bp.SetParam("manualQ", 2)
	base := 1500.0 / 500.0 * bandpassDefault / 2
	want := base * 2
	if diff := bp.autoQ() - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("manual autoQ = %v, want %v", bp.autoQ(), want)
	}
}

func TestBandpass_QFloorsAt0_7(t *testing.T) {
	bp := NewBandpass(12000, 100, 100000)
	if bp.autoQ() != 0.7 {
		t.Fatalf("autoQ = %v, want floored to 0.7", bp.autoQ())
	}
}

func TestBandpass_StagesClampToRange(t *testing.T) {
	bp := NewBandpass(12000, 1500, 500)
	if err := bp.SetParam("stages", 99); err == nil {
		t.Fatal("expected ErrOutOfRange for stages above max")
	}
	if bp.LatencySamples(12000) != bandpassMaxStages {
		t.Fatalf("latency = %d, want clamped to %d", bp.LatencySamples(12000), bandpassMaxStages)
	}
}

func TestBandpass_AttenuatesOutOfBand(t *testing.T) {
	bp := NewBandpass(12000, 1500, 300)
	bp.SetEnabled(true)

	n := 4096
	near := make([]float32, n)
	far := make([]float32, n)
	for i := 0; i < n; i++ {
		near[i] = float32(sinAt(1500, 12000, i))
		far[i] = float32(sinAt(5000, 12000, i))
	}

	nearOut := bp.Apply(near)
	farOut := bp.Apply(far)

	if rms(nearOut) <= rms(farOut) {
		t.Fatalf("expected passband tone to come through louder than a far off-band tone: near rms=%v far rms=%v", rms(nearOut), rms(farOut))
	}
}

func sinAt(freq, sampleRate float64, i int) float64 {
	return sin2pi(freq * float64(i) / sampleRate)
}
