package analyzer

import (
	"sync"
	"time"
)

const noiseFloorWindow = 2 * time.Second

// ServerSpectrumFrame is a retained snapshot of the most recent full-band
// FFT frame, kept so the display can be redrawn on zoom/pan without
// waiting for the next frame to arrive.
type ServerSpectrumFrame struct {
	CenterFreqHz   float64
	BinBandwidthHz float64
	BinCount       int
	DBValues       []float64
}

type minuteSample struct {
	at     time.Time
	values []float64
}

// SpectrumClient consumes the full-band spectrum transport's config/frame
// messages, tracks a rolling per-bin noise-floor minimum, and derives
// click-to-tune frequencies.
type SpectrumClient struct {
	mu sync.Mutex

	now func() time.Time

	current ServerSpectrumFrame

	history    []minuteSample
	noiseFloor []float64

	zoom float64
	pan  float64
}

// NewSpectrumClient builds a SpectrumClient using the real wall clock.
func NewSpectrumClient() *SpectrumClient {
	return &SpectrumClient{now: time.Now, zoom: 1}
}

// OnConfig applies a new coordinate system, invalidating the cached grid
// and marker cache (the caller is expected to discard any retained pixel
// mapping on return).
func (c *SpectrumClient) OnConfig(centerFreqHz, binBandwidthHz float64, binCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = ServerSpectrumFrame{CenterFreqHz: centerFreqHz, BinBandwidthHz: binBandwidthHz, BinCount: binCount}
	c.history = nil
	c.noiseFloor = make([]float64, binCount)
}

// OnFrame records dbValues as the latest frame and folds it into the
// rolling 2-second noise-floor minimum.
func (c *SpectrumClient) OnFrame(dbValues []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current.DBValues = dbValues
	now := c.now()
	c.history = append(c.history, minuteSample{at: now, values: dbValues})

	cutoff := now.Add(-noiseFloorWindow)
	i := 0
	for i < len(c.history) && c.history[i].at.Before(cutoff) {
		i++
	}
	c.history = c.history[i:]

	if len(c.noiseFloor) != len(dbValues) {
		c.noiseFloor = make([]float64, len(dbValues))
	}
	for bin := range c.noiseFloor {
		min := dbValues[bin]
		for _, s := range c.history {
			if bin < len(s.values) && s.values[bin] < min {
				min = s.values[bin]
			}
		}
		c.noiseFloor[bin] = min
	}
}

// NoiseFloor returns the current per-bin rolling minimum.
func (c *SpectrumClient) NoiseFloor() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.noiseFloor))
	copy(out, c.noiseFloor)
	return out
}

// Current returns the most recently retained frame.
func (c *SpectrumClient) Current() ServerSpectrumFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ClickToTune converts a click at pixel p on a canvas of canvasWidth
// pixels into a tuned frequency, honouring the client's current zoom/pan.
func (c *SpectrumClient) ClickToTune(p, canvasWidth int) float64 {
	c.mu.Lock()
	frame := c.current
	zoom := c.zoom
	pan := c.pan
	c.mu.Unlock()

	totalBandwidth := frame.BinBandwidthHz * float64(frame.BinCount)
	visibleBandwidth := totalBandwidth / zoom
	visibleCenter := frame.CenterFreqHz + pan

	if canvasWidth <= 0 {
		return visibleCenter
	}
	return visibleCenter - visibleBandwidth/2 + float64(p)*visibleBandwidth/float64(canvasWidth)
}

// SetZoom sets the zoom factor, clamped to [1, maxZoom].
func (c *SpectrumClient) SetZoom(factor, maxZoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if factor < 1 {
		factor = 1
	}
	if factor > maxZoom {
		factor = maxZoom
	}
	c.zoom = factor
}

// Pan shifts the visible window by delta Hz, clamped so the visible
// window stays within centerFreq ± totalBandwidth/2.
func (c *SpectrumClient) Pan(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalBandwidth := c.current.BinBandwidthHz * float64(c.current.BinCount)
	visibleBandwidth := totalBandwidth / c.zoom
	maxPan := (totalBandwidth - visibleBandwidth) / 2
	if maxPan < 0 {
		maxPan = 0
	}

	c.pan += delta
	if c.pan > maxPan {
		c.pan = maxPan
	}
	if c.pan < -maxPan {
		c.pan = -maxPan
	}
}

// PassbandShade returns the shaded passband range [tunedFreq+bwLow,
// tunedFreq+bwHigh] for overlay rendering.
func PassbandShade(tunedFreq float64, bwLow, bwHigh int) (low, high float64) {
	return tunedFreq + float64(bwLow), tunedFreq + float64(bwHigh)
}
