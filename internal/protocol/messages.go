// Package protocol defines the wire message shapes exchanged with the
// remote radio daemon over the control-plane and spectrum websockets.
package protocol

import "fmt"

// Mode is one of the exactly-eight demodulation modes the daemon accepts.
type Mode string

const (
	ModeUSB Mode = "usb"
	ModeLSB Mode = "lsb"
	ModeCWU Mode = "cwu"
	ModeCWL Mode = "cwl"
	ModeAM  Mode = "am"
	ModeSAM Mode = "sam"
	ModeFM  Mode = "fm"
	ModeNFM Mode = "nfm"
)

// ValidModes enumerates the modes accepted by the daemon, in table order.
var ValidModes = []Mode{ModeUSB, ModeLSB, ModeCWU, ModeCWL, ModeAM, ModeSAM, ModeFM, ModeNFM}

// IsValid reports whether m is one of the exactly-eight accepted modes.
func (m Mode) IsValid() bool {
	for _, v := range ValidModes {
		if v == m {
			return true
		}
	}
	return false
}

// BandwidthDefault is one row of the mode → default bandwidth table.
type BandwidthDefault struct {
	LowMin, LowMax   int
	LowDefault       int
	HighMin, HighMax int
	HighDefault      int
}

// DefaultBandwidths maps each mode to its slider range and default
// low/high bandwidth.
var DefaultBandwidths = map[Mode]BandwidthDefault{
	ModeUSB: {LowMin: 0, LowMax: 500, LowDefault: 50, HighMin: 0, HighMax: 3200, HighDefault: 2700},
	ModeLSB: {LowMin: -3200, LowMax: -50, LowDefault: -2700, HighMin: -50, HighMax: 0, HighDefault: -50},
	ModeAM:  {LowMin: -6000, LowMax: 0, LowDefault: -5000, HighMin: 0, HighMax: 6000, HighDefault: 5000},
	ModeSAM: {LowMin: -6000, LowMax: 0, LowDefault: -5000, HighMin: 0, HighMax: 6000, HighDefault: 5000},
	ModeCWU: {LowMin: -500, LowMax: 0, LowDefault: -200, HighMin: 0, HighMax: 500, HighDefault: 200},
	ModeCWL: {LowMin: -500, LowMax: 0, LowDefault: -200, HighMin: 0, HighMax: 500, HighDefault: 200},
	ModeFM:  {LowMin: -8000, LowMax: 0, LowDefault: -8000, HighMin: 0, HighMax: 8000, HighDefault: 8000},
	ModeNFM: {LowMin: -6250, LowMax: 0, LowDefault: -6250, HighMin: 0, HighMax: 6250, HighDefault: 6250},
}

// DefaultBandwidthFor returns the default low/high bandwidth for mode, or
// an error if mode isn't one of the eight accepted modes.
func DefaultBandwidthFor(mode Mode) (low, high int, err error) {
	d, ok := DefaultBandwidths[mode]
	if !ok {
		return 0, 0, fmt.Errorf("protocol: unknown mode %q", mode)
	}
	return d.LowDefault, d.HighDefault, nil
}

// Inbound is the envelope for every control-plane message received from
// the daemon. Only the fields relevant to Type are populated.
type Inbound struct {
	Type       string `json:"type"`
	Frequency  int    `json:"frequency,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Data       string `json:"data,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Outbound tune/ping messages sent to the daemon over the control plane.
type TuneMessage struct {
	Type          string `json:"type"`
	Frequency     int    `json:"frequency"`
	Mode          string `json:"mode"`
	BandwidthLow  int    `json:"bandwidthLow,omitempty"`
	BandwidthHigh int    `json:"bandwidthHigh,omitempty"`
	SquelchOpen   *int   `json:"squelchOpen,omitempty"`
	SquelchClose  *int   `json:"squelchClose,omitempty"`
}

// PingMessage is sent every 30 seconds as a control-plane keepalive.
type PingMessage struct {
	Type string `json:"type"`
}

func NewPing() PingMessage { return PingMessage{Type: "ping"} }

// SpectrumConfig is the "config" message on the spectrum transport.
type SpectrumConfig struct {
	Type         string  `json:"type"`
	CenterFreq   float64 `json:"centerFreq"`
	BinBandwidth float64 `json:"binBandwidth"`
	BinCount     int     `json:"binCount"`
}

// SpectrumFrame is the repeating "frame" message on the spectrum transport.
type SpectrumFrame struct {
	Type     string    `json:"type"`
	DBValues []float64 `json:"dbValues"`
}

// ConnectionCheckRequest is the body of POST /connection.
type ConnectionCheckRequest struct {
	UserSessionID string `json:"user_session_id"`
}

// ConnectionCheckResponse models the three outcomes of POST /connection:
// 200 ok, 410 terminated, 4xx rejection. HTTPStatus carries the status
// code so callers can distinguish "terminated" from "rejected".
type ConnectionCheckResponse struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	HTTPStatus int    `json:"-"`
}

// InstanceDescription is the body of GET /api/description.
type InstanceDescription struct {
	Name     string `json:"name"`
	GPS      string `json:"gps"`
	Callsign string `json:"callsign"`
	Version  string `json:"version"`
}
