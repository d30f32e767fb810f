// Package transport implements the websocket control-plane and spectrum
// connections to the remote radio daemon, and the HTTP session
// negotiation that precedes them.
package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hfdsp/receivercore/internal/audio"
	"github.com/hfdsp/receivercore/internal/protocol"
)

const (
	pingInterval      = 30 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// StatusUpdate is delivered for every inbound "status" message.
type StatusUpdate struct {
	Frequency int
	Mode      protocol.Mode
}

// Handlers are the callbacks a ControlPlane invokes as messages arrive.
// Any may be nil.
type Handlers struct {
	OnStatus  func(StatusUpdate)
	OnAudio   func(audio.Frame)
	OnError   func(err error, sessionConflict bool)
	Connected func()
}

// ControlPlane owns the websocket connection carrying status/audio/error
// messages inbound and tune/ping messages outbound, with an
// exponential-backoff auto-reconnect loop.
type ControlPlane struct {
	url      string
	handlers Handlers

	connMu sync.Mutex
	conn   *websocket.Conn

	mu                sync.Mutex
	connected         bool
	autoReconnect     bool
	reconnecting      bool
	reconnectAttempts int

	seq uint64

	cancel context.CancelFunc

	// wireDecoder handles the alternate binary framing (§ wireformat.go):
	// some daemons send audio as a binary websocket frame, optionally
	// zstd-compressed, instead of the JSON+base64 "audio" message.
	wireDecoder *audio.WireDecoder
}

// NewControlPlane creates a ControlPlane that will dial url (a ws:// or
// wss:// URL already carrying frequency/mode/user_session_id query
// parameters) when Connect is called.
func NewControlPlane(url string, handlers Handlers) *ControlPlane {
	wd, err := audio.NewWireDecoder()
	if err != nil {
		log.Printf("transport: binary PCM framing disabled: %v", err)
		wd = nil
	}
	return &ControlPlane{url: url, handlers: handlers, autoReconnect: true, wireDecoder: wd}
}

// Connect dials the control plane and starts the read loop and keepalive
// ticker in the background.
func (c *ControlPlane) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial control plane: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.connected = true
	c.reconnecting = false
	c.reconnectAttempts = 0
	c.mu.Unlock()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if c.handlers.Connected != nil {
		c.handlers.Connected()
	}

	go c.readLoop(runCtx, conn)
	go c.keepalive(runCtx)

	return nil
}

// Disconnect closes the connection and disables auto-reconnect.
func (c *ControlPlane) Disconnect() error {
	c.mu.Lock()
	c.autoReconnect = false
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if c.wireDecoder != nil {
			c.wireDecoder.Close()
		}
		return err
	}
	return nil
}

func (c *ControlPlane) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		wasConnected := c.connected
		c.connected = false
		shouldReconnect := c.autoReconnect && wasConnected && !c.reconnecting
		if shouldReconnect {
			c.reconnecting = true
			c.reconnectAttempts++
		}
		attempts := c.reconnectAttempts
		c.mu.Unlock()

		if shouldReconnect {
			go c.reconnectLoop(ctx, attempts)
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.BinaryMessage {
			c.handleBinaryAudio(data)
			continue
		}
		c.handleInbound(data)
	}
}

// handleBinaryAudio decodes a binary-framed PCM packet (§ wireformat.go),
// the alternate to the JSON+base64 "audio" message, and delivers it via
// the same OnAudio handler.
func (c *ControlPlane) handleBinaryAudio(data []byte) {
	if c.wireDecoder == nil {
		log.Printf("transport: dropped binary audio frame: no wire decoder available")
		return
	}
	// Compression covers the whole packet, header included, so a
	// compressed packet is recognised by the zstd frame magic
	// (0x28 0xB5 0x2F 0xFD) at its start.
	compressed := len(data) >= 4 && data[0] == 0x28 && data[1] == 0xB5 && data[2] == 0x2F && data[3] == 0xFD
	frame, err := c.wireDecoder.DecodePacket(data, compressed)
	if err != nil {
		log.Printf("transport: decode binary audio frame: %v", err)
		return
	}
	c.mu.Lock()
	c.seq++
	frame.Seq = c.seq
	c.mu.Unlock()
	if c.handlers.OnAudio != nil {
		c.handlers.OnAudio(frame)
	}
}

func (c *ControlPlane) handleInbound(data []byte) {
	var in protocol.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		log.Printf("transport: malformed control-plane message: %v", err)
		return
	}

	switch in.Type {
	case "status":
		if c.handlers.OnStatus != nil {
			c.handlers.OnStatus(StatusUpdate{Frequency: in.Frequency, Mode: protocol.Mode(in.Mode)})
		}

	case "audio":
		raw, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			log.Printf("transport: bad audio payload: %v", err)
			return
		}
		frame, err := audio.DecodePCM(raw, in.SampleRate)
		if err != nil {
			log.Printf("transport: decode frame: %v", err)
			return
		}
		c.mu.Lock()
		c.seq++
		frame.Seq = c.seq
		c.mu.Unlock()
		if c.handlers.OnAudio != nil {
			c.handlers.OnAudio(frame)
		}

	case "error":
		conflict := strings.Contains(strings.ToLower(in.Error), "session")
		if conflict {
			c.mu.Lock()
			c.autoReconnect = false
			c.mu.Unlock()
		}
		if c.handlers.OnError != nil {
			c.handlers.OnError(fmt.Errorf("transport: daemon error: %s", in.Error), conflict)
		}

	case "pong":
		// keepalive acknowledged; nothing to do.
	}
}

func (c *ControlPlane) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.send(protocol.NewPing())
		}
	}
}

// Tune sends a tune message with the given frequency, mode, and bandwidth.
func (c *ControlPlane) Tune(msg protocol.TuneMessage) error {
	msg.Type = "tune"
	return c.send(msg)
}

func (c *ControlPlane) send(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("transport: not connected")
	}
	return c.conn.WriteJSON(v)
}

// reconnectLoop retries Connect with exponential backoff (2^(attempts-1)
// seconds, capped at maxReconnectDelay) until it succeeds or
// auto-reconnect has been disabled.
func (c *ControlPlane) reconnectLoop(ctx context.Context, attempts int) {
	for {
		backoff := time.Duration(1<<uint(attempts-1)) * time.Second
		if backoff > maxReconnectDelay {
			backoff = maxReconnectDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		c.mu.Lock()
		stillWanted := c.autoReconnect
		c.mu.Unlock()
		if !stillWanted {
			return
		}

		if err := c.Connect(ctx); err == nil {
			return
		}

		c.mu.Lock()
		c.reconnectAttempts++
		attempts = c.reconnectAttempts
		c.mu.Unlock()
	}
}

// IsConnected reports whether the control plane currently has a live
// connection.
func (c *ControlPlane) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
