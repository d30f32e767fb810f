package settings

import (
	"path/filepath"
	"testing"
)

// TestStore_RoundTripsThroughDisk implements invariant 6: a persisted
// config, once restored, reproduces every field of what was saved.
func TestStore_RoundTripsThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store := NewStore(path)
	store.SetSaveEnabled(true)

	err := store.Update(func(cfg *SessionConfig) {
		cfg.Volume = 0.42
		cfg.Peaking.Enabled = true
		cfg.Peaking.BandsDb[0] = 6
		cfg.Bandpass.CenterHz = 1800
		cfg.Notch.Slots = []NotchSlotConfig{{Active: true, CenterHz: 1000, WidthHz: 50}}
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	restored := NewStore(path)
	var applied SessionConfig
	restored.Restore(func(cfg SessionConfig) { applied = cfg })

	if applied.Volume != 0.42 {
		t.Errorf("Volume = %v, want 0.42", applied.Volume)
	}
	if !applied.Peaking.Enabled || applied.Peaking.BandsDb[0] != 6 {
		t.Errorf("Peaking = %+v, want enabled with band0=6", applied.Peaking)
	}
	if applied.Bandpass.CenterHz != 1800 {
		t.Errorf("Bandpass.CenterHz = %v, want 1800", applied.Bandpass.CenterHz)
	}
	if len(applied.Notch.Slots) != 1 || applied.Notch.Slots[0].CenterHz != 1000 {
		t.Errorf("Notch.Slots = %+v, want one slot at 1000Hz", applied.Notch.Slots)
	}
}

func TestStore_SavedInstancesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store := NewStore(path)
	if err := store.AddSavedInstance(SavedInstance{Name: "shack", Host: "192.168.1.20", Port: 8080}); err != nil {
		t.Fatalf("AddSavedInstance: %v", err)
	}
	if err := store.AddSavedInstance(SavedInstance{Name: "remote", Host: "radio.example.com", Port: 443, TLS: true}); err != nil {
		t.Fatalf("AddSavedInstance: %v", err)
	}
	// Same host/port replaces the entry instead of duplicating it.
	if err := store.AddSavedInstance(SavedInstance{Name: "shack-renamed", Host: "192.168.1.20", Port: 8080}); err != nil {
		t.Fatalf("AddSavedInstance: %v", err)
	}

	restored := NewStore(path)
	restored.Restore(func(SessionConfig) {})

	got := restored.SavedInstances()
	if len(got) != 2 {
		t.Fatalf("restored %d instances, want 2: %+v", len(got), got)
	}
	if got[0].Name != "shack-renamed" {
		t.Errorf("instance 0 = %+v, want the replaced entry", got[0])
	}
	if !got[1].TLS || got[1].Host != "radio.example.com" {
		t.Errorf("instance 1 = %+v", got[1])
	}
}

func TestStore_SaveDisabledByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path)

	if err := store.Update(func(cfg *SessionConfig) { cfg.Volume = 0.1 }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	restored := NewStore(path)
	applied := DefaultSessionConfig()
	called := false
	restored.Restore(func(cfg SessionConfig) { applied = cfg; called = true })

	if called {
		t.Fatal("expected Restore to find nothing on disk when saving was never enabled")
	}
	if applied.Volume != DefaultSessionConfig().Volume {
		t.Fatal("expected the default volume when no file was ever written")
	}
}

func TestStore_RestoreMissingFileKeepsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"))
	called := false
	store.Restore(func(cfg SessionConfig) { called = true })
	if called {
		t.Fatal("apply should not be invoked when the settings file doesn't exist")
	}
	if store.Get().Volume != DefaultSessionConfig().Volume {
		t.Fatal("expected Get() to still report factory defaults")
	}
}

func TestStore_RestoreWithReentrantUpdateDoesNotDeadlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path)
	store.SetSaveEnabled(true)
	_ = store.Update(func(cfg *SessionConfig) { cfg.Volume = 0.3 })

	restored := NewStore(path)
	restored.SetSaveEnabled(true)
	restored.Restore(func(cfg SessionConfig) {
		// Applying a restored snapshot normally drives per-node SetParam
		// calls, which in turn call Update — re-entrant while restoring is
		// still in flight, and must not stack-overflow or deadlock.
		_ = restored.Update(func(inner *SessionConfig) { inner.Muted = cfg.Muted })
	})
}
