package audio

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/gordonklaus/portaudio"
)

// Microphone captures the default input device into a FrameRing.
type Microphone struct {
	sampleRate  int
	stream      *portaudio.Stream
	ring        *FrameRing
	isStreaming bool
}

// NewMicrophone initializes portaudio and opens the default input device.
func NewMicrophone(sampleRate, ringFrames int) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	m := &Microphone{sampleRate: sampleRate, ring: NewFrameRing(ringFrames)}
	if err := m.start(); err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return m, nil
}

// audioCallback runs on the portaudio thread. FrameRing.Write never blocks
// on the consumer; a slow reader just loses the oldest frames.
func (m *Microphone) audioCallback(in []float32) {
	m.ring.WriteInterleaved(in, 1)
}

func (m *Microphone) start() error {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return err
	}

	params := portaudio.HighLatencyParameters(host.DefaultInputDevice, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(m.sampleRate)

	stream, err := portaudio.OpenStream(params, m.audioCallback)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	m.stream = stream
	m.isStreaming = true
	glog.Infof("Microphone capture started at %d Hz", m.sampleRate)
	return nil
}

func (m *Microphone) Name() string { return "mic" }

func (m *Microphone) Available() int { return m.ring.Available() }

func (m *Microphone) Read(n int) [][2]float32 { return m.ring.Read(n) }

func (m *Microphone) Dropped() int64 { return m.ring.Dropped() }

func (m *Microphone) Close() error {
	if !m.isStreaming {
		return nil
	}
	if err := m.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	m.isStreaming = false
	return portaudio.Terminate()
}
