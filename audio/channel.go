package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Channel plays one Stream into the output mixer. It is a beep.Streamer
// that stays in the mixer for its whole life and emits silence while
// stopped, so starting and stopping never touches the mixer itself.
//
// Control methods are called from the render goroutine; Stream is called
// from the audio device goroutine.
type Channel struct {
	name   string
	stream *Stream

	mu      sync.Mutex
	pos     int
	playing bool
	ended   bool
	tap     *FrameRing
}

// NewChannel creates a stopped channel positioned at the start of s. s must
// already be at the output sample rate.
func NewChannel(name string, s *Stream) *Channel {
	return &Channel{name: name, stream: s}
}

// SetTap copies every frame the channel plays into ring.
func (c *Channel) SetTap(ring *FrameRing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tap = ring
}

// Name identifies the channel in logs.
func (c *Channel) Name() string { return c.name }

// Duration is the play length of the bound stream.
func (c *Channel) Duration() time.Duration { return c.stream.Duration() }

// Play starts playback at from. Positions past the end clamp to the end,
// which ends the channel on its next mix.
func (c *Channel) Play(from time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = c.frameAt(from)
	c.playing = true
	c.ended = false
}

// Stop halts playback and keeps the position.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
}

// Playing reports whether the channel is currently producing audio.
func (c *Channel) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Position is the offset of the next frame to be mixed.
func (c *Channel) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeAt(c.pos)
}

// Ended reports, once, that playback ran to the end of the stream.
func (c *Channel) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ended := c.ended
	c.ended = false
	return ended
}

func (c *Channel) frameAt(d time.Duration) int {
	if d <= 0 || c.stream.SampleRate <= 0 {
		return 0
	}
	f := int(int64(d) * int64(c.stream.SampleRate) / int64(time.Second))
	return min(f, c.stream.Len())
}

func (c *Channel) timeAt(frame int) time.Duration {
	if c.stream.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frame) * time.Second / time.Duration(c.stream.SampleRate)
}

// Stream implements beep.Streamer.
func (c *Channel) Stream(samples [][2]float64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	if c.playing {
		frames := c.stream.Frames[c.pos:]
		n = min(len(samples), len(frames))
		for i := range n {
			samples[i] = [2]float64{float64(frames[i][0]), float64(frames[i][1])}
		}
		if c.tap != nil && n > 0 {
			c.tap.Write(frames[:n])
		}
		c.pos += n
		if c.pos >= c.stream.Len() {
			c.playing = false
			c.ended = true
		}
	}
	clear(samples[n:])
	return len(samples), true
}

// Err implements beep.Streamer.
func (c *Channel) Err() error { return nil }

var _ beep.Streamer = (*Channel)(nil)
