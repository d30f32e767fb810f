package latency

import "testing"

// TestCompute_ScenarioS6 matches spec scenario S6: EQ + bandpass (4 stages)
// + one notch + compressor (3ms attack) at 12000 Hz totals ~9.8ms.
func TestCompute_ScenarioS6(t *testing.T) {
	b := Compute(Inputs{
		SampleRate:          12000,
		EQEnabled:           true,
		BandpassEnabled:     true,
		BandpassStages:      4,
		NotchEnabled:        true,
		NotchCount:          1,
		CompressorEnabled:   true,
		CompressorAttackSec: 0.003,
	})

	want := 9.8
	if diff := b.TotalMs - want; diff > 0.2 || diff < -0.2 {
		t.Fatalf("total = %v ms, want ~%v ms", b.TotalMs, want)
	}
}

func TestCompute_DisabledEffectsContributeNothing(t *testing.T) {
	b := Compute(Inputs{SampleRate: 12000})
	if b.TotalMs != 0 {
		t.Fatalf("total = %v, want 0 when nothing is enabled", b.TotalMs)
	}
}

func TestCompute_ZeroSampleRateIsZeroBreakdown(t *testing.T) {
	b := Compute(Inputs{SampleRate: 0, EQEnabled: true})
	if b.TotalMs != 0 || b.EQMs != 0 {
		t.Fatal("expected a zeroed breakdown when sampleRate is 0")
	}
}

func TestAccountant_BroadcastsToSubscribers(t *testing.T) {
	a := NewAccountant()
	var got Breakdown
	calls := 0
	a.Subscribe(func(ev ChangeEvent) {
		got = ev.Breakdown
		calls++
	})

	b := a.Recompute(Inputs{SampleRate: 12000, EQEnabled: true})
	if calls != 1 {
		t.Fatalf("listener called %d times, want 1", calls)
	}
	if got.TotalMs != b.TotalMs {
		t.Fatalf("broadcast breakdown mismatch: got %v, want %v", got.TotalMs, b.TotalMs)
	}
	if a.Last().TotalMs != b.TotalMs {
		t.Fatal("Last() should reflect the most recent Recompute")
	}
}
