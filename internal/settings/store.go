// Package settings persists effect configuration and spectrum display
// settings to a local JSON file and restores them on startup.
package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// keyPrefix namespaces every persisted key, matching the daemon-side
// convention for this client's saved state.
const keyPrefix = "ka9q_filter_"

// PeakingConfig is the persisted state of the 12-band equaliser.
type PeakingConfig struct {
	Enabled  bool        `json:"enabled"`
	BandsDb  [12]float64 `json:"bandsDb"`
	MakeupDb float64     `json:"makeupDb"`
}

// BandpassConfig is the persisted state of the cascaded bandpass filter.
type BandpassConfig struct {
	Enabled  bool    `json:"enabled"`
	CenterHz float64 `json:"centerHz"`
	WidthHz  float64 `json:"widthHz"`
	Stages   int     `json:"stages"`
	Manual   bool    `json:"manual"`
	ManualQ  float64 `json:"manualQ"`
}

// NotchSlotConfig is one persisted notch filter entry.
type NotchSlotConfig struct {
	Active   bool    `json:"active"`
	CenterHz float64 `json:"centerHz"`
	WidthHz  float64 `json:"widthHz"`
}

// NotchConfig is the persisted state of the multi-notch filter.
type NotchConfig struct {
	Enabled bool              `json:"enabled"`
	Slots   []NotchSlotConfig `json:"slots"`
}

// CompressorConfig is the persisted state of the dynamics unit.
type CompressorConfig struct {
	Enabled     bool    `json:"enabled"`
	ThresholdDb float64 `json:"thresholdDb"`
	Ratio       float64 `json:"ratio"`
	AttackSec   float64 `json:"attackSec"`
	ReleaseSec  float64 `json:"releaseSec"`
	MakeupDb    float64 `json:"makeupDb"`
}

// NRConfig is the persisted state of the spectral noise reduction node.
type NRConfig struct {
	Enabled   bool    `json:"enabled"`
	Strength  float64 `json:"strength"`
	FloorDb   float64 `json:"floorDb"`
	AdaptRate float64 `json:"adaptRate"`
}

// SquelchConfig is the persisted state of the squelch gate.
type SquelchConfig struct {
	Enabled   bool    `json:"enabled"`
	OpenDb    float64 `json:"openDb"`
	CloseDb   float64 `json:"closeDb"`
	AttackMs  float64 `json:"attackMs"`
	ReleaseMs float64 `json:"releaseMs"`
}

// StereoConfig is the persisted state of the stereo virtualiser.
type StereoConfig struct {
	Enabled  bool    `json:"enabled"`
	DelayMs  float64 `json:"delayMs"`
	Width    float64 `json:"width"`
	MakeupDb float64 `json:"makeupDb"`
}

// SpectrumDisplayConfig is the persisted full-band spectrum display state.
type SpectrumDisplayConfig struct {
	ZoomScroll bool `json:"zoomScroll"`
	PanScroll  bool `json:"panScroll"`
	ClickTune  bool `json:"clickTune"`
	CenterTune bool `json:"centerTune"`
	SnapHz     int  `json:"snapHz"`
}

// SessionConfig is a full snapshot of effect enable flags/parameters plus
// spectrum display settings (§3 SessionConfig, §4.9).
type SessionConfig struct {
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`

	Peaking    PeakingConfig         `json:"peaking"`
	Bandpass   BandpassConfig        `json:"bandpass"`
	Notch      NotchConfig           `json:"notch"`
	Compressor CompressorConfig      `json:"compressor"`
	NR         NRConfig              `json:"nr"`
	Squelch    SquelchConfig         `json:"squelch"`
	Stereo     StereoConfig          `json:"stereo"`
	Spectrum   SpectrumDisplayConfig `json:"spectrum"`
}

// DefaultSessionConfig returns the factory-default snapshot.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Volume: 0.7,
		Peaking: PeakingConfig{
			Enabled: false,
		},
		Bandpass: BandpassConfig{
			Enabled:  false,
			CenterHz: 1500,
			WidthHz:  500,
			Stages:   4,
			ManualQ:  1,
		},
		Notch: NotchConfig{Enabled: false},
		Compressor: CompressorConfig{
			Enabled:     false,
			ThresholdDb: -24,
			Ratio:       12,
			AttackSec:   0.003,
			ReleaseSec:  0.25,
		},
		NR: NRConfig{
			Enabled:   false,
			Strength:  0.5,
			FloorDb:   -20,
			AdaptRate: 1.0,
		},
		Squelch: SquelchConfig{
			Enabled:   false,
			OpenDb:    -50,
			CloseDb:   -55,
			AttackMs:  10,
			ReleaseMs: 100,
		},
		Stereo: StereoConfig{
			Enabled: false,
			DelayMs: 20,
			Width:   0.5,
		},
		Spectrum: SpectrumDisplayConfig{
			ZoomScroll: true,
			ClickTune:  true,
			SnapHz:     500,
		},
	}
}

// Store persists a SessionConfig to a namespaced JSON file and restores
// it on startup. A re-entry guard suppresses saves while Restore is
// actively applying a loaded snapshot back onto live sliders.
type Store struct {
	mu          sync.RWMutex
	path        string
	config      SessionConfig
	instances   []SavedInstance
	saveEnabled bool
	restoring   bool
}

// NewStore creates a Store backed by path. Saving is off until SetSaveEnabled(true)
// is called — the user-controlled "save" switch from §4.9.
func NewStore(path string) *Store {
	return &Store{path: path, config: DefaultSessionConfig()}
}

// SetSaveEnabled toggles the user-controlled save switch.
func (s *Store) SetSaveEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveEnabled = on
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Update applies mutate to the in-memory snapshot and persists it to disk,
// provided the save switch is on and a restoration is not in progress.
func (s *Store) Update(mutate func(*SessionConfig)) error {
	s.mu.Lock()
	mutate(&s.config)
	shouldSave := s.saveEnabled && !s.restoring
	cfg := s.config
	instances := append([]SavedInstance(nil), s.instances...)
	s.mu.Unlock()

	if !shouldSave {
		return nil
	}
	return s.save(cfg, instances)
}

// SavedInstances returns the user's saved receiver list.
func (s *Store) SavedInstances() []SavedInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SavedInstance(nil), s.instances...)
}

// AddSavedInstance adds inst to the saved receiver list, replacing any
// existing entry with the same host and port, and persists immediately.
// Saving an instance is an explicit user action, so it is not gated on
// the effect-settings save switch.
func (s *Store) AddSavedInstance(inst SavedInstance) error {
	s.mu.Lock()
	replaced := false
	for i := range s.instances {
		if s.instances[i].Host == inst.Host && s.instances[i].Port == inst.Port {
			s.instances[i] = inst
			replaced = true
			break
		}
	}
	if !replaced {
		s.instances = append(s.instances, inst)
	}
	cfg := s.config
	instances := append([]SavedInstance(nil), s.instances...)
	restoring := s.restoring
	s.mu.Unlock()

	if restoring {
		return nil
	}
	return s.save(cfg, instances)
}

func (s *Store) save(cfg SessionConfig, instances []SavedInstance) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: create directory: %w", err)
	}

	envelope := map[string]interface{}{keyPrefix + "session": cfg}
	if len(instances) > 0 {
		envelope[keyPrefix+"instances"] = instances
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	return nil
}

// Restore loads the persisted snapshot from disk and applies it via
// apply, under the re-entry guard so the Update calls apply triggers do
// not re-save mid-restoration. Restoration failures are logged and
// non-fatal: the Store keeps its current (factory-default) snapshot.
func (s *Store) Restore(apply func(SessionConfig)) {
	s.mu.Lock()
	s.restoring = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.restoring = false
		s.mu.Unlock()
	}()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Printf("settings: restore: read failed, using defaults: %v", err)
		return
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Printf("settings: restore: parse failed, using defaults: %v", err)
		return
	}

	if raw, ok := envelope[keyPrefix+"instances"]; ok {
		var instances []SavedInstance
		if err := json.Unmarshal(raw, &instances); err != nil {
			log.Printf("settings: restore: bad saved-instance list, discarding: %v", err)
		} else {
			s.mu.Lock()
			s.instances = instances
			s.mu.Unlock()
		}
	}

	raw, ok := envelope[keyPrefix+"session"]
	if !ok {
		log.Printf("settings: restore: no %q key present, using defaults", keyPrefix+"session")
		return
	}
	var cfg SessionConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Printf("settings: restore: bad session snapshot, using defaults: %v", err)
		return
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	apply(cfg)
}
