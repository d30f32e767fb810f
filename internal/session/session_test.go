package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hfdsp/receivercore/internal/audio"
	"github.com/hfdsp/receivercore/internal/protocol"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(Config{SettingsPath: filepath.Join(t.TempDir(), "settings.json"), SampleRate: 12000})
}

func TestSession_StatusBeforeConnect(t *testing.T) {
	s := newTestSession(t)
	status := s.Status()
	if status.Connected {
		t.Fatal("expected a fresh session to report disconnected")
	}
}

func TestSession_TuneWithoutConnectErrors(t *testing.T) {
	s := newTestSession(t)
	if err := s.Tune(14074000, protocol.ModeUSB, 50, 2700); err == nil {
		t.Fatal("expected Tune to fail before Connect")
	}
}

func TestSession_TuneRejectsInvalidMode(t *testing.T) {
	s := newTestSession(t)
	if err := s.Tune(14074000, protocol.Mode("bogus"), 0, 0); err == nil {
		t.Fatal("expected Tune to reject an unrecognised mode")
	}
}

func TestSession_SetEffectParamUnknownEffectErrors(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetEffectParam("reverb", "level", 1); err == nil {
		t.Fatal("expected an error for an unknown effect")
	}
}

func TestSession_SetEffectParamGain(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetEffectParam("gain", "level", 0.5); err != nil {
		t.Fatalf("SetEffectParam: %v", err)
	}
	if s.LatencyBreakdown().TotalMs < 0 {
		t.Fatalf("unexpected negative latency total")
	}
}

func TestSession_SetEffectEnabledUnknownEffectErrors(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetEffectEnabled("reverb", true); err == nil {
		t.Fatal("expected an error for an unknown effect")
	}
}

func TestSession_SetEffectEnabledRecomputesLatency(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetEffectEnabled(string(audio.EffectCompressor), true); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}
	if s.LatencyBreakdown().TotalMs <= 0 {
		t.Fatal("expected enabling the compressor to add nonzero latency")
	}
}

func TestSession_ApplyPeakingPresetUnknownNameErrors(t *testing.T) {
	s := newTestSession(t)
	if err := s.ApplyPeakingPreset("jazz"); err == nil {
		t.Fatal("expected an error for an unknown preset")
	}
}

func TestSession_ApplyPeakingPresetVoice(t *testing.T) {
	s := newTestSession(t)
	if err := s.ApplyPeakingPreset("voice"); err != nil {
		t.Fatalf("ApplyPeakingPreset: %v", err)
	}
}

func TestSession_AddNotchFillsSlots(t *testing.T) {
	s := newTestSession(t)
	slot, err := s.AddNotch(1000, 50)
	if err != nil {
		t.Fatalf("AddNotch: %v", err)
	}
	if slot != 0 {
		t.Fatalf("slot = %d, want 0", slot)
	}
}

// TestSession_PersistenceRoundTrip saves a session's effect state and
// verifies a second session constructed over the same settings file comes
// back with identical parameters and enable flags.
func TestSession_PersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s := New(Config{SettingsPath: path, SampleRate: 12000})
	s.SettingsStore().SetSaveEnabled(true)

	require.NoError(t, s.SetEffectParam("compressor", "threshold", -30))
	require.NoError(t, s.SetEffectEnabled("compressor", true))
	require.NoError(t, s.SetEffectParam("bandpass", "center", 1800))
	require.NoError(t, s.SetEffectEnabled("bandpass", true))
	_, err := s.AddNotch(1000, 50)
	require.NoError(t, err)
	require.NoError(t, s.SetEffectParam("gain", "level", 0.42))

	restored := New(Config{SettingsPath: path, SampleRate: 12000})

	require.Equal(t, -30.0, restored.compressor.ThresholdDb())
	require.True(t, restored.compressor.Enabled())
	require.Equal(t, 1800.0, restored.bandpass.CenterHz())
	require.True(t, restored.bandpass.Enabled())
	slots := restored.notch.Slots()
	require.True(t, slots[0].Active)
	require.Equal(t, 1000.0, slots[0].CenterHz)
	require.Equal(t, 50.0, slots[0].WidthHz)
	require.Equal(t, 0.42, restored.gain.Level())
}

func TestSession_CloseWithoutConnectIsSafe(t *testing.T) {
	s := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close on an unconnected session: %v", err)
	}
}
