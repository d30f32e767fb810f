package effects

import "testing"

func TestNR_ProducesSameLengthOutput(t *testing.T) {
	n := NewNR(12000)
	in := make([]float32, 5000)
	for i := range in {
		in[i] = float32(sin2pi(1000 * float64(i) / 12000))
	}
	out := n.Apply(in)
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
}

func TestNR_LatencyIsTwiceFFTSize(t *testing.T) {
	n := NewNR(12000)
	if got := n.LatencySamples(12000); got != nrFFTSize*2 {
		t.Fatalf("LatencySamples = %d, want %d", got, nrFFTSize*2)
	}
}

func TestNR_ParamsClamp(t *testing.T) {
	n := NewNR(12000)
	if err := n.SetParam("strength", 5); err == nil {
		t.Fatal("expected ErrOutOfRange for strength above 1")
	}
	if err := n.SetParam("floor", 10); err == nil {
		t.Fatal("expected ErrOutOfRange for floor above 0dB")
	}
	if err := n.SetParam("adaptRate", -1); err == nil {
		t.Fatal("expected ErrOutOfRange for negative adaptRate")
	}
}

func TestNR_ReducesSteadyNoiseOverTime(t *testing.T) {
	n := NewNR(12000)
	_ = n.SetParam("strength", 1.0)
	_ = n.SetParam("adaptRate", 5.0)

	noise := make([]float32, nrFFTSize*20)
	seed := uint32(12345)
	for i := range noise {
		seed = seed*1664525 + 1013904223
		noise[i] = float32(int32(seed)>>16) / 32768
	}

	// Prime the noise estimate over several frames, then measure energy
	// reduction on a continuation of the same noise floor.
	firstHalf := noise[:len(noise)/2]
	secondHalf := noise[len(noise)/2:]
	n.Apply(firstHalf)
	out := n.Apply(secondHalf)

	if rms(out) >= rms(secondHalf)*1.5 {
		t.Fatalf("expected NR not to amplify a steady noise floor: in rms=%v out rms=%v", rms(secondHalf), rms(out))
	}
}
