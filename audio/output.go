package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/golang/glog"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// Mixer sums every attached streamer into interleaved float32 stereo. It is
// the io.Reader the audio device pulls from and also records when it last
// produced audio, which is how far the device is behind the channel
// positions.
type Mixer struct {
	mu         sync.Mutex
	mixer      beep.Mixer
	buf        [][2]float64
	lastMix    time.Time
	lastChunk  int // frames produced by the last Read
	sampleRate int // 0 when the device rate is unknown
	now        func() time.Time
}

// NewMixer returns an empty mixer.
func NewMixer() *Mixer {
	return &Mixer{now: time.Now}
}

// Add attaches s. When audible is false the streamer still runs (so taps
// keep capturing) but contributes silence.
func (m *Mixer) Add(s beep.Streamer, audible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Add(&effects.Volume{Streamer: s, Base: 2, Silent: !audible})
}

// Clear detaches every streamer.
func (m *Mixer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Clear()
}

// Len is the number of attached streamers.
func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

// TimeSinceLastMix is the time elapsed since the device last pulled audio.
func (m *Mixer) TimeSinceLastMix() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastMix.IsZero() {
		return 0
	}
	return m.now().Sub(m.lastMix)
}

// OutputLatency is the play time of the chunk handed to the device by the
// last Read. Channel positions already include that chunk, so it has not
// been heard yet when TimeSinceLastMix is 0.
func (m *Mixer) OutputLatency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampleRate <= 0 {
		return 0
	}
	return time.Duration(m.lastChunk) * time.Second / time.Duration(m.sampleRate)
}

// Read fills p with float32 little-endian stereo frames.
func (m *Mixer) Read(p []byte) (int, error) {
	const frameBytes = 8
	frames := len(p) / frameBytes

	m.mu.Lock()
	defer m.mu.Unlock()

	if cap(m.buf) < frames {
		m.buf = make([][2]float64, frames)
	}
	buf := m.buf[:frames]
	n, _ := m.mixer.Stream(buf)
	clear(buf[n:])

	for i, f := range buf {
		binary.LittleEndian.PutUint32(p[i*frameBytes:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(p[i*frameBytes+4:], math.Float32bits(float32(f[1])))
	}
	clear(p[frames*frameBytes:])
	m.lastMix = m.now()
	m.lastChunk = frames
	return len(p), nil
}

// Output owns the oto context and the player that drains a Mixer.
type Output struct {
	ctx    *oto.Context
	player *oto.Player
	mixer  *Mixer
}

// NewOutput opens the default audio device. An oto context can only be
// created once per process.
func NewOutput(sampleRate int, bufferSize time.Duration) (*Output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}
	<-ready

	mixer := NewMixer()
	mixer.sampleRate = sampleRate
	o := &Output{ctx: ctx, mixer: mixer}
	o.player = ctx.NewPlayer(o.mixer)
	o.player.Play()
	glog.Infof("Audio output started: %d Hz stereo, buffer %v", sampleRate, bufferSize)
	return o, nil
}

// Mixer returns the mixer feeding the device.
func (o *Output) Mixer() *Mixer { return o.mixer }

// Close stops the player.
func (o *Output) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}
