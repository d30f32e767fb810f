package transport

import (
	"testing"
	"time"
)

func TestSpectrumTransportURL_PathAndScheme(t *testing.T) {
	got, err := SpectrumTransportURL("https://radio.example.com")
	if err != nil {
		t.Fatalf("SpectrumTransportURL: %v", err)
	}
	want := "wss://radio.example.com/ws/user-spectrum"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSpectrumTransport_HandleMessageConfig(t *testing.T) {
	var gotCenter, gotBW float64
	var gotBins int
	s := NewSpectrumTransport("ws://unused", SpectrumHandlers{
		OnConfig: func(centerFreqHz, binBandwidthHz float64, binCount int) {
			gotCenter, gotBW, gotBins = centerFreqHz, binBandwidthHz, binCount
		},
	})

	s.handleMessage([]byte(`{"type":"config","centerFreq":14074000,"binBandwidth":100,"binCount":4096}`))

	if gotCenter != 14074000 || gotBW != 100 || gotBins != 4096 {
		t.Fatalf("got center=%v bw=%v bins=%v", gotCenter, gotBW, gotBins)
	}
}

func TestSpectrumTransport_HandleMessageFrame(t *testing.T) {
	var got []float64
	s := NewSpectrumTransport("ws://unused", SpectrumHandlers{
		OnFrame: func(dbValues []float64) { got = dbValues },
	})

	s.handleMessage([]byte(`{"type":"frame","dbValues":[-90.5,-80.1,-70.2]}`))

	if len(got) != 3 || got[1] != -80.1 {
		t.Fatalf("got %v", got)
	}
}

func TestSpectrumTransport_HandleMessageUnknownTypeIgnored(t *testing.T) {
	called := false
	s := NewSpectrumTransport("ws://unused", SpectrumHandlers{
		OnConfig: func(float64, float64, int) { called = true },
		OnFrame:  func([]float64) { called = true },
	})

	s.handleMessage([]byte(`{"type":"ping"}`))

	if called {
		t.Fatal("expected no handler to run for an unrecognised type")
	}
}

func TestSpectrumTransport_AllowCommandRateLimits(t *testing.T) {
	s := NewSpectrumTransport("ws://unused", SpectrumHandlers{})

	if !s.allowCommand() {
		t.Fatal("expected first command to be allowed")
	}
	if s.allowCommand() {
		t.Fatal("expected immediate second command to be rate limited")
	}

	s.lastCommandTime = time.Now().Add(-minCommandDelay - time.Millisecond)
	if !s.allowCommand() {
		t.Fatal("expected command to be allowed once the delay has elapsed")
	}
}

func TestSpectrumTransport_SendZoomWithoutConnectionErrors(t *testing.T) {
	s := NewSpectrumTransport("ws://unused", SpectrumHandlers{})
	if err := s.SendZoom(2.0); err == nil {
		t.Fatal("expected an error sending on a transport with no live connection")
	}
}
