package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hfdsp/receivercore/internal/protocol"
)

// SpectrumTransportURL builds the full-band spectrum websocket URL,
// separate from the control-plane's /ws.
func SpectrumTransportURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("transport: parse base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/user-spectrum"
	return u.String(), nil
}

const minCommandDelay = 100 * time.Millisecond // 10 commands/s max

// SpectrumHandlers are invoked as spectrum-transport messages arrive.
type SpectrumHandlers struct {
	OnConfig func(centerFreqHz, binBandwidthHz float64, binCount int)
	OnFrame  func(dbValues []float64)
}

// SpectrumTransport is the persistent full-band spectrum connection,
// separate from the control plane.
type SpectrumTransport struct {
	url      string
	handlers SpectrumHandlers

	connMu sync.Mutex
	conn   *websocket.Conn

	commandMu       sync.Mutex
	lastCommandTime time.Time
}

// NewSpectrumTransport creates a SpectrumTransport that will dial url when
// Connect is called.
func NewSpectrumTransport(url string, handlers SpectrumHandlers) *SpectrumTransport {
	return &SpectrumTransport{url: url, handlers: handlers}
}

// Connect dials the spectrum endpoint and starts the read loop.
func (s *SpectrumTransport) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial spectrum: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	go s.readLoop(conn)
	return nil
}

func (s *SpectrumTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(data)
	}
}

func (s *SpectrumTransport) handleMessage(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}

	switch envelope.Type {
	case "config":
		var cfg protocol.SpectrumConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return
		}
		if s.handlers.OnConfig != nil {
			s.handlers.OnConfig(cfg.CenterFreq, cfg.BinBandwidth, cfg.BinCount)
		}

	case "frame":
		var frame protocol.SpectrumFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		if s.handlers.OnFrame != nil {
			s.handlers.OnFrame(frame.DBValues)
		}
	}
}

// allowCommand enforces the 10/s rate limit on outbound zoom/pan commands.
func (s *SpectrumTransport) allowCommand() bool {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	now := time.Now()
	if now.Sub(s.lastCommandTime) < minCommandDelay {
		return false
	}
	s.lastCommandTime = now
	return true
}

// SendZoom sends a zoom command if the rate limit allows it.
func (s *SpectrumTransport) SendZoom(factor float64) error {
	if !s.allowCommand() {
		return nil
	}
	return s.send(map[string]interface{}{"type": "zoom", "factor": factor})
}

// SendPan sends a pan command if the rate limit allows it.
func (s *SpectrumTransport) SendPan(deltaHz float64) error {
	if !s.allowCommand() {
		return nil
	}
	return s.send(map[string]interface{}{"type": "pan", "deltaHz": deltaHz})
}

func (s *SpectrumTransport) send(v interface{}) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("transport: spectrum not connected")
	}
	return s.conn.WriteJSON(v)
}

// Close closes the spectrum connection.
func (s *SpectrumTransport) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
