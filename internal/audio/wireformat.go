package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Binary PCM packet magic values, matching the daemon's hybrid header
// strategy: a full header carries sample rate/channel metadata, a minimal
// header reuses whatever the last full header declared.
const (
	wireMagicFull    = 0x5043 // "PC"
	wireMagicMinimal = 0x504D // "PM"

	wireFullHeaderLen    = 29
	wireMinimalHeaderLen = 13
)

// WireDecoder turns a raw (possibly zstd-compressed) binary PCM packet
// from the control-plane's binary frame path into a decoded Frame. This is
// the alternate wire path to the JSON+base64 "audio" message (§6); a
// daemon may send either, and WireDecoder tracks the sample rate/channel
// count declared by the last full header so minimal-header packets can
// omit them.
type WireDecoder struct {
	mu sync.Mutex

	zstd *zstd.Decoder

	lastSampleRate int
	lastChannels   int
}

// NewWireDecoder builds a WireDecoder with a reusable zstd stream decoder.
func NewWireDecoder() (*WireDecoder, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("audio: create zstd decoder: %w", err)
	}
	return &WireDecoder{zstd: zr}, nil
}

// Close releases the underlying zstd decoder.
func (d *WireDecoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zstd.Close()
}

// DecodePacket decompresses packet (if compressed is true), parses its
// header, and decodes the trailing big-endian PCM payload into a Frame.
func (d *WireDecoder) DecodePacket(packet []byte, compressed bool) (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if compressed {
		decompressed, err := d.zstd.DecodeAll(packet, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("audio: zstd decompress: %w", err)
		}
		packet = decompressed
	}

	if len(packet) < 2 {
		return Frame{}, fmt.Errorf("%w: packet too short for a magic header", ErrInvalidFrame)
	}
	magic := binary.LittleEndian.Uint16(packet[0:2])

	var pcm []byte
	switch magic {
	case wireMagicFull:
		if len(packet) < wireFullHeaderLen {
			return Frame{}, fmt.Errorf("%w: full header packet too short", ErrInvalidFrame)
		}
		d.lastSampleRate = int(binary.LittleEndian.Uint32(packet[20:24]))
		d.lastChannels = int(packet[24])
		pcm = packet[wireFullHeaderLen:]

	case wireMagicMinimal:
		if len(packet) < wireMinimalHeaderLen {
			return Frame{}, fmt.Errorf("%w: minimal header packet too short", ErrInvalidFrame)
		}
		if d.lastSampleRate == 0 {
			return Frame{}, fmt.Errorf("audio: minimal-header packet arrived before any full header")
		}
		pcm = packet[wireMinimalHeaderLen:]

	default:
		return Frame{}, fmt.Errorf("%w: unrecognised magic 0x%04x", ErrInvalidFrame, magic)
	}

	return DecodePCM(pcm, d.lastSampleRate)
}
