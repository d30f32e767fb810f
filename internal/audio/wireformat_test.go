package audio

import (
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func fullHeaderPacket(sampleRate int, channels int, pcm []byte) []byte {
	packet := make([]byte, wireFullHeaderLen+len(pcm))
	binary.LittleEndian.PutUint16(packet[0:2], wireMagicFull)
	packet[2] = 1 // version
	packet[3] = 0 // format: plain PCM
	binary.LittleEndian.PutUint32(packet[20:24], uint32(sampleRate))
	packet[24] = byte(channels)
	copy(packet[wireFullHeaderLen:], pcm)
	return packet
}

func TestWireDecoder_FullHeaderDecodesPCM(t *testing.T) {
	wd, err := NewWireDecoder()
	if err != nil {
		t.Fatalf("NewWireDecoder: %v", err)
	}
	defer wd.Close()

	pcm := []byte{0x3F, 0xFF, 0x00, 0x00} // two samples
	packet := fullHeaderPacket(12000, 1, pcm)

	frame, err := wd.DecodePacket(packet, false)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if frame.SampleRate != 12000 {
		t.Fatalf("SampleRate = %d, want 12000", frame.SampleRate)
	}
	if len(frame.Samples) != 2 {
		t.Fatalf("len(Samples) = %d, want 2", len(frame.Samples))
	}
}

func TestWireDecoder_MinimalHeaderReusesLastFullHeader(t *testing.T) {
	wd, err := NewWireDecoder()
	if err != nil {
		t.Fatalf("NewWireDecoder: %v", err)
	}
	defer wd.Close()

	full := fullHeaderPacket(24000, 1, []byte{0x00, 0x01})
	if _, err := wd.DecodePacket(full, false); err != nil {
		t.Fatalf("DecodePacket(full): %v", err)
	}

	minimal := make([]byte, wireMinimalHeaderLen+2)
	binary.LittleEndian.PutUint16(minimal[0:2], wireMagicMinimal)
	minimal[2] = 1
	binary.LittleEndian.PutUint64(minimal[3:11], 42)
	copy(minimal[wireMinimalHeaderLen:], []byte{0x00, 0x02})

	frame, err := wd.DecodePacket(minimal, false)
	if err != nil {
		t.Fatalf("DecodePacket(minimal): %v", err)
	}
	if frame.SampleRate != 24000 {
		t.Fatalf("SampleRate = %d, want reused 24000", frame.SampleRate)
	}
}

func TestWireDecoder_MinimalHeaderBeforeFullHeaderErrors(t *testing.T) {
	wd, err := NewWireDecoder()
	if err != nil {
		t.Fatalf("NewWireDecoder: %v", err)
	}
	defer wd.Close()

	minimal := make([]byte, wireMinimalHeaderLen)
	binary.LittleEndian.PutUint16(minimal[0:2], wireMagicMinimal)

	if _, err := wd.DecodePacket(minimal, false); err == nil {
		t.Fatal("expected an error for a minimal header with no prior full header")
	}
}

func TestWireDecoder_UnknownMagicErrors(t *testing.T) {
	wd, _ := NewWireDecoder()
	defer wd.Close()

	if _, err := wd.DecodePacket([]byte{0xAB, 0xCD, 0x00, 0x00}, false); err == nil {
		t.Fatal("expected an error for an unrecognised magic")
	}
}

func TestWireDecoder_ZstdCompressedPacket(t *testing.T) {
	wd, err := NewWireDecoder()
	if err != nil {
		t.Fatalf("NewWireDecoder: %v", err)
	}
	defer wd.Close()

	packet := fullHeaderPacket(12000, 1, []byte{0x3F, 0xFF})

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	compressed := enc.EncodeAll(packet, nil)
	enc.Close()

	frame, err := wd.DecodePacket(compressed, true)
	if err != nil {
		t.Fatalf("DecodePacket(compressed): %v", err)
	}
	if frame.SampleRate != 12000 || len(frame.Samples) != 1 {
		t.Fatalf("frame = %+v, want sampleRate=12000 with 1 sample", frame)
	}
}
