// Package session ties together the clock, effect chain, settings store,
// and (once connected) the transports into the single owning object the
// rest of the program talks to.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hfdsp/receivercore/internal/analyzer"
	"github.com/hfdsp/receivercore/internal/audio"
	"github.com/hfdsp/receivercore/internal/audio/effects"
	"github.com/hfdsp/receivercore/internal/latency"
	"github.com/hfdsp/receivercore/internal/localapi"
	"github.com/hfdsp/receivercore/internal/meter"
	"github.com/hfdsp/receivercore/internal/protocol"
	"github.com/hfdsp/receivercore/internal/settings"
	"github.com/hfdsp/receivercore/internal/sink"
	"github.com/hfdsp/receivercore/internal/transport"
)

// monotonicNow returns a media-clock time source anchored at the instant
// it's created, the way the teacher's audio context exposes currentTime.
func monotonicNow() func() time.Duration {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}

// Config is the set of values needed to construct a Session.
type Config struct {
	SettingsPath string
	SampleRate   int // initial/expected sample rate, re-opened on change
}

// Session is the single owner of a receiver's audio clock, effect nodes,
// settings store, and (once Connect succeeds) its transports. All
// previously module-scope state in the source this was modelled on
// becomes fields here.
type Session struct {
	mu sync.Mutex

	clock      *audio.Clock
	assembler  *audio.Assembler
	fade       *audio.FadeEnvelope
	compressor *effects.Compressor
	bandpass   *effects.Bandpass
	notch      *effects.Notch
	nr         *effects.NR
	peaking    *effects.Peaking
	squelch    *effects.Squelch
	stereo     *effects.Stereo
	gain       *effects.Gain

	accountant *latency.Accountant
	store      *settings.Store
	discovery  *settings.Discovery
	meter      *meter.SignalMeter

	tunedSpectrum *analyzer.SpectrumAnalyzer
	oscilloscope  *analyzer.Oscilloscope
	vu            *analyzer.VUAnalyzer
	spectrumView  *analyzer.SpectrumClient

	sampleRate int
	sink       *sink.PortAudioSink

	httpSession       *transport.HTTPSession
	controlPlane      *transport.ControlPlane
	spectrumTransport *transport.SpectrumTransport

	frequency     int
	mode          protocol.Mode
	bandwidthLow  int
	bandwidthHigh int
	connected     bool
	lastVUPeak    float32

	userSessionID string
}

// New constructs a Session with its fixed-order effect chain and settings
// store, but no transports yet — call Connect to attach to a daemon.
func New(cfg Config) *Session {
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = 12000
	}

	s := &Session{
		clock:         audio.NewClock(monotonicNow()),
		fade:          audio.NewFadeEnvelope(),
		compressor:    effects.NewCompressor(sr),
		bandpass:      effects.NewBandpass(sr, 1500, 500),
		notch:         effects.NewNotch(sr),
		nr:            effects.NewNR(sr),
		peaking:       effects.NewPeaking(sr),
		squelch:       effects.NewSquelch(sr),
		stereo:        effects.NewStereo(sr),
		gain:          effects.NewGain(),
		accountant:    latency.NewAccountant(),
		store:         settings.NewStore(cfg.SettingsPath),
		discovery:     settings.NewDiscovery(),
		meter:         meter.NewSignalMeter(),
		tunedSpectrum: analyzer.NewSpectrumAnalyzer(0),
		oscilloscope:  analyzer.NewOscilloscope(),
		vu:            analyzer.NewVUAnalyzer(),
		spectrumView:  analyzer.NewSpectrumClient(),
		sampleRate:    sr,
		userSessionID: uuid.NewString(),
	}
	s.assembler = audio.NewAssembler(s.tunedPreTap, s.tunedPostTap)

	s.applyStoredConfig(settings.DefaultSessionConfig())
	s.store.Restore(s.applyStoredConfig)

	if err := s.discovery.Start(); err != nil {
		log.Printf("session: instance discovery unavailable: %v", err)
	}
	return s
}

// tunedPreTap feeds the oscilloscope's time-domain ring buffer from the
// signal tap between the source and the effect chain, before any effect
// has run. The tuned spectrum bars are computed on demand from this same
// buffer at render time, per §5's "freshly sampled each tick" rule.
func (s *Session) tunedPreTap(samples []float32) {
	s.oscilloscope.Feed(samples)
}

// tunedPostTap feeds the VU analyser from the post-effects gain output,
// so the meter reflects what the user hears before the sink.
func (s *Session) tunedPostTap(samples []float32) {
	peak := s.vu.Peak(samples)
	s.mu.Lock()
	s.lastVUPeak = peak
	s.mu.Unlock()
}

// TunedSpectrumFrame returns the current byte-quantised magnitude spectrum
// over the oscilloscope's retained time-domain window, for the tuned
// spectrum/waterfall render tick to consume.
func (s *Session) TunedSpectrumFrame() []byte {
	return s.tunedSpectrum.Magnitudes(s.oscilloscope.DisplayedSamples(100))
}

// Oscilloscope exposes the time-domain tap for the render tick.
func (s *Session) Oscilloscope() *analyzer.Oscilloscope { return s.oscilloscope }

// SpectrumView exposes the full-band spectrum client for the render tick
// and click-to-tune handling.
func (s *Session) SpectrumView() *analyzer.SpectrumClient { return s.spectrumView }

// VUPeak returns the most recent post-effects peak amplitude.
func (s *Session) VUPeak() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVUPeak
}

// orderedNodes returns the fixed Compressor → Bandpass → Notch → NR →
// Peaking → Squelch → Stereo → Gain chain.
func (s *Session) orderedNodes() []audio.Node {
	return []audio.Node{s.compressor, s.bandpass, s.notch, s.nr, s.peaking, s.squelch, s.stereo, s.gain}
}

func (s *Session) applyStoredConfig(cfg settings.SessionConfig) {
	_ = s.gain.SetParam("level", cfg.Volume)
	if cfg.Muted {
		_ = s.gain.SetParam("mute", 1)
	}
	s.gain.SetEnabled(true)

	s.peaking.SetEnabled(cfg.Peaking.Enabled)
	for i, db := range cfg.Peaking.BandsDb {
		_ = s.peaking.SetParam(fmt.Sprintf("band%d", i), db)
	}
	_ = s.peaking.SetParam("makeup", cfg.Peaking.MakeupDb)

	s.bandpass.SetEnabled(cfg.Bandpass.Enabled)
	_ = s.bandpass.SetParam("center", cfg.Bandpass.CenterHz)
	_ = s.bandpass.SetParam("width", cfg.Bandpass.WidthHz)
	_ = s.bandpass.SetParam("stages", float64(cfg.Bandpass.Stages))
	if cfg.Bandpass.ManualQ != 0 {
		_ = s.bandpass.SetParam("manualQ", cfg.Bandpass.ManualQ)
	}
	if cfg.Bandpass.Manual {
		_ = s.bandpass.SetParam("manual", 1)
	}

	s.notch.SetEnabled(cfg.Notch.Enabled)
	for _, slot := range cfg.Notch.Slots {
		if slot.Active {
			_, _ = s.notch.AddNotch(slot.CenterHz, slot.WidthHz)
		}
	}

	s.compressor.SetEnabled(cfg.Compressor.Enabled)
	_ = s.compressor.SetParam("threshold", cfg.Compressor.ThresholdDb)
	_ = s.compressor.SetParam("ratio", cfg.Compressor.Ratio)
	_ = s.compressor.SetParam("attack", cfg.Compressor.AttackSec)
	_ = s.compressor.SetParam("release", cfg.Compressor.ReleaseSec)
	_ = s.compressor.SetParam("makeup", cfg.Compressor.MakeupDb)

	s.nr.SetEnabled(cfg.NR.Enabled)
	_ = s.nr.SetParam("strength", cfg.NR.Strength)
	_ = s.nr.SetParam("floor", cfg.NR.FloorDb)
	_ = s.nr.SetParam("adaptRate", cfg.NR.AdaptRate)

	s.squelch.SetEnabled(cfg.Squelch.Enabled)
	_ = s.squelch.SetParam("open", cfg.Squelch.OpenDb)
	_ = s.squelch.SetParam("close", cfg.Squelch.CloseDb)
	_ = s.squelch.SetParam("attack", cfg.Squelch.AttackMs)
	_ = s.squelch.SetParam("release", cfg.Squelch.ReleaseMs)

	s.stereo.SetEnabled(cfg.Stereo.Enabled)
	_ = s.stereo.SetParam("delay", cfg.Stereo.DelayMs)
	_ = s.stereo.SetParam("width", cfg.Stereo.Width)
	_ = s.stereo.SetParam("makeup", cfg.Stereo.MakeupDb)

	s.recomputeLatency()
}

// Connect negotiates the HTTP admission check, opens the control plane
// and spectrum transport, and begins receiving audio.
func (s *Session) Connect(ctx context.Context, baseURL string) error {
	s.httpSession = transport.NewHTTPSession(baseURL)

	check, err := s.httpSession.CheckConnection(ctx, s.userSessionID)
	if err != nil {
		return fmt.Errorf("session: connection check: %w", err)
	}
	if !check.Allowed {
		return fmt.Errorf("session: connection rejected (%d): %s", check.HTTPStatus, check.Reason)
	}

	wsURL, err := transport.ControlPlaneURL(baseURL, s.frequency, s.mode, s.userSessionID)
	if err != nil {
		return err
	}

	s.controlPlane = transport.NewControlPlane(wsURL, transport.Handlers{
		OnStatus: s.onStatus,
		OnAudio:  s.onAudioFrame,
		OnError:  s.onError,
		Connected: func() {
			s.mu.Lock()
			s.connected = true
			s.mu.Unlock()
		},
	})
	if err := s.controlPlane.Connect(ctx); err != nil {
		return fmt.Errorf("session: connect control plane: %w", err)
	}

	specURL, err := transport.SpectrumTransportURL(baseURL)
	if err != nil {
		return err
	}
	s.spectrumTransport = transport.NewSpectrumTransport(specURL, transport.SpectrumHandlers{
		OnConfig: s.spectrumView.OnConfig,
		OnFrame:  s.onSpectrumFrame,
	})
	if err := s.spectrumTransport.Connect(ctx); err != nil {
		log.Printf("session: spectrum transport: %v", err)
	}

	return s.openSink(s.sampleRate)
}

// onSpectrumFrame folds an inbound full-band frame into the spectrum
// client's rolling noise floor, then drives the C10 signal meter's dBFS
// reading from the peak within the current tuned bandwidth.
func (s *Session) onSpectrumFrame(dbValues []float64) {
	s.spectrumView.OnFrame(dbValues)

	frame := s.spectrumView.Current()
	if frame.BinBandwidthHz <= 0 || len(dbValues) == 0 {
		return
	}

	s.mu.Lock()
	freq, bwLow, bwHigh := s.frequency, s.bandwidthLow, s.bandwidthHigh
	s.mu.Unlock()
	loHz, hiHz := analyzer.PassbandShade(float64(freq), bwLow, bwHigh)

	peakDb := -120.0
	noiseFloor := s.spectrumView.NoiseFloor()
	floorSum, floorCount := 0.0, 0
	for i, db := range dbValues {
		binFreq := frame.CenterFreqHz - frame.BinBandwidthHz*float64(len(dbValues))/2 + float64(i)*frame.BinBandwidthHz
		if binFreq < loHz || binFreq > hiHz {
			continue
		}
		if db > peakDb {
			peakDb = db
		}
		if i < len(noiseFloor) {
			floorSum += noiseFloor[i]
			floorCount++
		}
	}
	noiseFloorDb := -120.0
	if floorCount > 0 {
		noiseFloorDb = floorSum / float64(floorCount)
	}

	s.meter.Update(peakDb, noiseFloorDb)
}

func (s *Session) openSink(sampleRate int) error {
	s.mu.Lock()
	old := s.sink
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	channels := 1
	if s.stereo.Enabled() {
		channels = 2
	}
	snk, err := sink.Open(sampleRate, channels)
	if err != nil {
		return fmt.Errorf("session: open sink: %w", err)
	}

	s.mu.Lock()
	s.sink = snk
	s.sampleRate = sampleRate
	s.mu.Unlock()
	return nil
}

func (s *Session) onStatus(update transport.StatusUpdate) {
	low, high, err := protocol.DefaultBandwidthFor(update.Mode)
	s.mu.Lock()
	s.frequency = update.Frequency
	s.mode = update.Mode
	if err == nil {
		s.bandwidthLow, s.bandwidthHigh = low, high
	}
	s.mu.Unlock()
}

func (s *Session) onError(err error, sessionConflict bool) {
	if sessionConflict {
		log.Printf("session: fatal: %v", err)
		_ = s.Close()
		return
	}
	log.Printf("session: %v", err)
}

// onAudioFrame is the control-plane reader's per-frame entry point: it
// schedules the frame on the media clock, rebuilds the effect graph, runs
// the chain, and writes the result to the sink.
func (s *Session) onAudioFrame(frame audio.Frame) {
	result := s.clock.Schedule(frame)
	if result.SampleRateChanged {
		if err := s.openSink(frame.SampleRate); err != nil {
			log.Printf("session: reopen sink: %v", err)
			return
		}
	}
	if result.FadeIn {
		s.fade.TriggerFadeIn(result.FadeInDuration)
	}
	if result.Underrun {
		log.Printf("session: underrun recovered, resuming at %v", result.StartTime)
		s.fade.TriggerReset(audio.DefaultResetFade)
	}

	graph, degraded := s.assembler.Build(s.orderedNodes())
	if degraded {
		log.Printf("session: graph assembly degraded, bypassing effect chain for this frame")
	}

	out := graph.Run(frame.Samples)

	channels := 1
	if len(frame.Samples) > 0 && len(out) == 2*len(frame.Samples) {
		channels = 2
	}
	s.fade.Apply(out, frame.SampleRate, channels)

	s.mu.Lock()
	snk := s.sink
	s.mu.Unlock()
	if snk != nil {
		if err := snk.Write(out); err != nil {
			log.Printf("session: sink write: %v", err)
		}
	}
}

// Tune sends a tune request for the given frequency/mode/bandwidth.
func (s *Session) Tune(frequency int, mode protocol.Mode, bwLow, bwHigh int) error {
	if !mode.IsValid() {
		return fmt.Errorf("session: invalid mode %q", mode)
	}
	if s.controlPlane == nil {
		return fmt.Errorf("session: not connected")
	}
	s.mu.Lock()
	s.bandwidthLow, s.bandwidthHigh = bwLow, bwHigh
	s.mu.Unlock()
	return s.controlPlane.Tune(protocol.TuneMessage{
		Frequency:     frequency,
		Mode:          string(mode),
		BandwidthLow:  bwLow,
		BandwidthHigh: bwHigh,
	})
}

// SetEffectEnabled toggles the named effect's enable flag, rewires the
// latency total, and persists the change.
func (s *Session) SetEffectEnabled(effect string, on bool) error {
	switch effect {
	case string(audio.EffectPeaking):
		s.peaking.SetEnabled(on)
	case string(audio.EffectBandpass):
		s.bandpass.SetEnabled(on)
	case string(audio.EffectNotch):
		s.notch.SetEnabled(on)
	case string(audio.EffectCompressor):
		s.compressor.SetEnabled(on)
	case string(audio.EffectNR):
		s.nr.SetEnabled(on)
	case string(audio.EffectSquelch):
		s.squelch.SetEnabled(on)
	case string(audio.EffectStereo):
		s.stereo.SetEnabled(on)
	default:
		return fmt.Errorf("session: unknown effect %q", effect)
	}
	s.recomputeLatency()
	_ = s.store.Update(func(cfg *settings.SessionConfig) { s.snapshotInto(cfg) })
	return nil
}

// ApplyPeakingPreset loads one of the named 12-band EQ curves ("voice" or
// "cw") and recomputes latency/persistence, matching §4.3's preset rule.
func (s *Session) ApplyPeakingPreset(name string) error {
	switch name {
	case "voice":
		s.peaking.ApplyPreset(effects.VoicePreset)
	case "cw":
		s.peaking.ApplyPreset(effects.CWPreset)
	default:
		return fmt.Errorf("session: unknown peaking preset %q", name)
	}
	s.recomputeLatency()
	_ = s.store.Update(func(cfg *settings.SessionConfig) { s.snapshotInto(cfg) })
	return nil
}

// AddNotch activates the lowest free notch slot at centerHz/widthHz.
func (s *Session) AddNotch(centerHz, widthHz float64) (int, error) {
	slot, err := s.notch.AddNotch(centerHz, widthHz)
	if err == nil {
		s.recomputeLatency()
		_ = s.store.Update(func(cfg *settings.SessionConfig) { s.snapshotInto(cfg) })
	}
	return slot, err
}

// RemoveNotch deactivates notch slot i; the remaining notches keep their
// slots.
func (s *Session) RemoveNotch(i int) error {
	if err := s.notch.RemoveNotch(i); err != nil {
		return err
	}
	s.recomputeLatency()
	_ = s.store.Update(func(cfg *settings.SessionConfig) { s.snapshotInto(cfg) })
	return nil
}

// SetEffectParam dispatches a parameter update to the named effect and
// recomputes the published latency total.
func (s *Session) SetEffectParam(effect, name string, value float64) error {
	var err error
	switch effect {
	case string(audio.EffectCompressor):
		err = s.compressor.SetParam(name, value)
	case string(audio.EffectBandpass):
		err = s.bandpass.SetParam(name, value)
	case string(audio.EffectNotch):
		err = s.notch.SetParam(name, value)
	case string(audio.EffectNR):
		err = s.nr.SetParam(name, value)
	case string(audio.EffectPeaking):
		err = s.peaking.SetParam(name, value)
	case string(audio.EffectSquelch):
		err = s.squelch.SetParam(name, value)
	case string(audio.EffectStereo):
		err = s.stereo.SetParam(name, value)
	case string(audio.EffectGain):
		err = s.gain.SetParam(name, value)
	default:
		return fmt.Errorf("session: unknown effect %q", effect)
	}

	s.recomputeLatency()
	_ = s.store.Update(func(cfg *settings.SessionConfig) { s.snapshotInto(cfg) })

	return err
}

// snapshotInto copies every effect's live enable flag and parameters into
// cfg, so a save followed by Restore reproduces the chain exactly.
func (s *Session) snapshotInto(cfg *settings.SessionConfig) {
	cfg.Volume = s.gain.Level()
	cfg.Muted = s.gain.Muted()

	cfg.Peaking.Enabled = s.peaking.Enabled()
	cfg.Peaking.BandsDb = s.peaking.BandGains()
	cfg.Peaking.MakeupDb = s.peaking.MakeupDb()

	cfg.Bandpass.Enabled = s.bandpass.Enabled()
	cfg.Bandpass.CenterHz = s.bandpass.CenterHz()
	cfg.Bandpass.WidthHz = s.bandpass.WidthHz()
	cfg.Bandpass.Stages = s.bandpass.Stages()
	cfg.Bandpass.Manual = s.bandpass.Manual()
	cfg.Bandpass.ManualQ = s.bandpass.ManualQ()

	cfg.Notch.Enabled = s.notch.Enabled()
	slots := s.notch.Slots()
	cfg.Notch.Slots = make([]settings.NotchSlotConfig, len(slots))
	for i, slot := range slots {
		cfg.Notch.Slots[i] = settings.NotchSlotConfig{Active: slot.Active, CenterHz: slot.CenterHz, WidthHz: slot.WidthHz}
	}

	cfg.Compressor.Enabled = s.compressor.Enabled()
	cfg.Compressor.ThresholdDb = s.compressor.ThresholdDb()
	cfg.Compressor.Ratio = s.compressor.Ratio()
	cfg.Compressor.AttackSec = s.compressor.AttackSeconds()
	cfg.Compressor.ReleaseSec = s.compressor.ReleaseSeconds()
	cfg.Compressor.MakeupDb = s.compressor.MakeupDb()

	cfg.NR.Enabled = s.nr.Enabled()
	cfg.NR.Strength = s.nr.Strength()
	cfg.NR.FloorDb = s.nr.FloorDb()
	cfg.NR.AdaptRate = s.nr.AdaptRate()

	cfg.Squelch.Enabled = s.squelch.Enabled()
	cfg.Squelch.OpenDb = s.squelch.OpenDb()
	cfg.Squelch.CloseDb = s.squelch.CloseDb()
	cfg.Squelch.AttackMs = s.squelch.AttackMs()
	cfg.Squelch.ReleaseMs = s.squelch.ReleaseMs()

	cfg.Stereo.Enabled = s.stereo.Enabled()
	cfg.Stereo.DelayMs = s.stereo.DelayMs()
	cfg.Stereo.Width = s.stereo.Width()
	cfg.Stereo.MakeupDb = s.stereo.MakeupDb()
}

func (s *Session) recomputeLatency() {
	s.accountant.Recompute(latency.Inputs{
		SampleRate:          s.sampleRate,
		EQEnabled:           s.peaking.Enabled(),
		BandpassEnabled:     s.bandpass.Enabled(),
		BandpassStages:      s.bandpass.LatencySamples(s.sampleRate),
		NotchEnabled:        s.notch.Enabled(),
		NotchCount:          s.notch.LatencySamples(s.sampleRate) / 6,
		NREnabled:           s.nr.Enabled(),
		CompressorEnabled:   s.compressor.Enabled(),
		CompressorAttackSec: s.compressor.AttackSeconds(),
		StereoEnabled:       s.stereo.Enabled(),
		StereoDelayMs:       s.stereo.DelayMs(),
		SquelchEnabled:      s.squelch.Enabled(),
		SquelchAttackMs:     s.squelch.AttackMs(),
	})
}

// Status returns the current tuning/connection snapshot for localapi.
func (s *Session) Status() localapi.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return localapi.Status{Connected: s.connected, Frequency: s.frequency, Mode: string(s.mode)}
}

// LatencyBreakdown returns the most recently computed latency breakdown.
func (s *Session) LatencyBreakdown() latency.Breakdown { return s.accountant.Last() }

// SettingsStore exposes the settings store for localapi's save-toggle
// endpoint.
func (s *Session) SettingsStore() *settings.Store { return s.store }

// LocalInstances returns the receiver daemons discovered on the LAN so
// far.
func (s *Session) LocalInstances() []settings.LocalInstance {
	return s.discovery.Instances()
}

// SavedInstances returns the persisted receiver list.
func (s *Session) SavedInstances() []settings.SavedInstance {
	return s.store.SavedInstances()
}

// SaveInstance persists a receiver (typically one picked from
// LocalInstances) for later reconnection.
func (s *Session) SaveInstance(inst settings.SavedInstance) error {
	return s.store.AddSavedInstance(inst)
}

// Close tears down transports and the sink first, then leaves the effect
// nodes (owned for the Session's whole lifetime) to be garbage collected.
func (s *Session) Close() error {
	s.discovery.Stop()
	if s.controlPlane != nil {
		_ = s.controlPlane.Disconnect()
	}
	if s.spectrumTransport != nil {
		_ = s.spectrumTransport.Close()
	}

	s.mu.Lock()
	snk := s.sink
	s.sink = nil
	s.connected = false
	s.mu.Unlock()

	if snk != nil {
		return snk.Close()
	}
	return nil
}
