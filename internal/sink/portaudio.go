// Package sink implements the playback terminus the effect graph writes
// into: a PortAudio output stream, opened and reopened as the daemon's
// declared sample rate changes.
package sink

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const defaultFramesPerBuffer = 1024

// PortAudioSink owns an output stream at a fixed sample rate and channel
// count. It is torn down and reopened by the Session whenever the
// scheduled sample rate changes.
type PortAudioSink struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	buffer   []float32
	channels int
}

// Open starts an output stream at sampleRate with the given channel
// count (1 mono, 2 stereo from the Stereo virtualiser) on the default
// output device.
func Open(sampleRate int, channels int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("sink: initialize portaudio: %w", err)
	}

	outputDev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("sink: default output device: %w", err)
	}

	buf := make([]float32, defaultFramesPerBuffer*channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: channels,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: defaultFramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("sink: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("sink: start stream: %w", err)
	}

	return &PortAudioSink{stream: stream, buffer: buf, channels: channels}, nil
}

// Write copies samples into the stream's output buffer and advances
// playback. samples must be interleaved if channels > 1.
func (s *PortAudioSink) Write(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(s.buffer, samples)
	for i := n; i < len(s.buffer); i++ {
		s.buffer[i] = 0
	}
	return s.stream.Write()
}

// Close stops and releases the stream and the PortAudio runtime handle.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	portaudio.Terminate()
	s.stream = nil

	if stopErr != nil {
		return fmt.Errorf("sink: stop stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("sink: close stream: %w", closeErr)
	}
	return nil
}
