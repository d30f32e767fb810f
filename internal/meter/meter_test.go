package meter

import (
	"testing"
	"time"
)

func TestSignalMeter_ThrottlesUpdates(t *testing.T) {
	m := NewSignalMeter()

	if _, ok := m.Update(-60, -100); !ok {
		t.Fatal("expected the first update to be accepted")
	}
	if _, ok := m.Update(-60, -100); ok {
		t.Fatal("expected an immediately-following update to be throttled")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := m.Update(-60, -100); !ok {
		t.Fatal("expected an update after the throttle window to be accepted")
	}
}

func TestSignalMeter_SNRModeComputesDifference(t *testing.T) {
	m := NewSignalMeter()
	m.SetMode(ModeSNR)
	reading, ok := m.Update(-40, -90)
	if !ok {
		t.Fatal("expected first update to be accepted")
	}
	// smoothedPeakDb starts at -120 and blends 30% toward -40.
	wantSmoothed := 0.7*-120 + 0.3*-40
	wantSNR := wantSmoothed - (-90)
	if diff := reading.Value - wantSNR; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("SNR value = %v, want %v", reading.Value, wantSNR)
	}
}

func TestDbfsPercentageSegments(t *testing.T) {
	cases := []struct {
		db   float64
		want float64
	}{
		{-130, 0},
		{-120, 0},
		{-100, 20},
		{-80, 40},
		{-70, 60},
		{-60, 80},
		{-40, 90},
		{-20, 100},
		{0, 100},
	}
	for _, c := range cases {
		if got := dbfsPercentage(c.db); got != c.want {
			t.Errorf("dbfsPercentage(%v) = %v, want %v", c.db, got, c.want)
		}
	}
}

func TestSnrPercentageSegments(t *testing.T) {
	cases := []struct {
		db   float64
		want float64
	}{
		{-5, 0},
		{0, 0},
		{10, 20},
		{20, 40},
		{30, 60},
		{40, 80},
		{50, 90},
		{60, 100},
		{100, 100},
	}
	for _, c := range cases {
		if got := snrPercentage(c.db); got != c.want {
			t.Errorf("snrPercentage(%v) = %v, want %v", c.db, got, c.want)
		}
	}
}

func TestDbfsColorThresholds(t *testing.T) {
	if got := dbfsColor(-50); got != "green" {
		t.Errorf("dbfsColor(-50) = %v, want green", got)
	}
	if got := dbfsColor(-80); got != "yellow" {
		t.Errorf("dbfsColor(-80) = %v, want yellow", got)
	}
	if got := dbfsColor(-100); got != "red" {
		t.Errorf("dbfsColor(-100) = %v, want red", got)
	}
}

func TestDbfsModeFlashesAboveMinus30(t *testing.T) {
	m := NewSignalMeter()
	reading, _ := m.Update(0, -100)
	// After one 30%-blend step from -120 toward 0, the smoothed value is
	// -84, below the -30 flash threshold, so repeat until it crosses.
	for i := 0; i < 20 && !reading.Flashing; i++ {
		time.Sleep(40 * time.Millisecond)
		reading, _ = m.Update(0, -100)
	}
	if !reading.Flashing {
		t.Fatal("expected the dBFS reading to flash once the smoothed peak rises above -30dB")
	}
}
