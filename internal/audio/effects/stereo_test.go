package effects

import "testing"

func TestStereo_DoublesBufferLength(t *testing.T) {
	s := NewStereo(12000)
	in := make([]float32, 100)
	out := s.Apply(in)
	if len(out) != 200 {
		t.Fatalf("len(out) = %d, want 200", len(out))
	}
}

func TestStereo_RightChannelIsUndelayedInput(t *testing.T) {
	s := NewStereo(12000)
	_ = s.SetParam("delay", 10)
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := s.Apply(in)
	for i, x := range in {
		if diff := out[2*i+1] - x; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("right channel sample %d = %v, want %v", i, out[2*i+1], x)
		}
	}
}

func TestStereo_WidthZeroMeansMono(t *testing.T) {
	s := NewStereo(12000)
	_ = s.SetParam("width", 0)
	in := []float32{0.5, -0.3, 0.1}
	out := s.Apply(in)
	for i, x := range in {
		if diff := out[2*i] - x; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("left channel at width=0, sample %d = %v, want %v", i, out[2*i], x)
		}
	}
}

func TestStereo_LatencyMatchesDelayMs(t *testing.T) {
	s := NewStereo(12000)
	_ = s.SetParam("delay", 20)
	want := int(20.0 / 1000 * 12000)
	if got := s.LatencySamples(12000); got != want {
		t.Fatalf("LatencySamples = %d, want %d", got, want)
	}
}

func TestStereo_DelayClampsToMax(t *testing.T) {
	s := NewStereo(12000)
	if err := s.SetParam("delay", 1000); err == nil {
		t.Fatal("expected ErrOutOfRange above the max delay")
	}
}
