package audio

// We'll be using portaudio for microphone capture.
// macos:	brew install portaudio
// debian:	sudo apt-get install portaudio19-dev
// windows:	pacman -S mingw-w64-x86_64-portaudio

// CaptureSource is a polled producer of stereo frames. Producers run on
// their own goroutines and buffer into a FrameRing; the render loop reads
// Available() frames per tick and never blocks.
type CaptureSource interface {
	// Name identifies the source in logs and diagnostics.
	Name() string
	// Available returns the number of frames ready to read.
	Available() int
	// Read destructively reads up to n frames.
	Read(n int) [][2]float32
	// Dropped is the number of frames discarded because the reader fell
	// behind.
	Dropped() int64
	// Close stops the producer.
	Close() error
}

// RingSource adapts a FrameRing fed by something else, such as a playback
// channel tap.
type RingSource struct {
	name string
	*FrameRing
}

// NewRingSource wraps ring.
func NewRingSource(name string, ring *FrameRing) *RingSource {
	return &RingSource{name: name, FrameRing: ring}
}

func (s *RingSource) Name() string { return s.name }
func (s *RingSource) Close() error { return nil }

// NullSource never produces frames.
type NullSource struct{}

func (NullSource) Name() string          { return "none" }
func (NullSource) Available() int        { return 0 }
func (NullSource) Read(int) [][2]float32 { return nil }
func (NullSource) Dropped() int64        { return 0 }
func (NullSource) Close() error          { return nil }

var (
	_ CaptureSource = (*RingSource)(nil)
	_ CaptureSource = NullSource{}
	_ CaptureSource = (*Microphone)(nil)
	_ CaptureSource = (*FFmpegCapture)(nil)
)
