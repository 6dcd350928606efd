package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// Stream is a fully decoded audio file held in memory as stereo frames.
type Stream struct {
	Path       string
	SampleRate int
	Frames     [][2]float32
}

// Len is the number of frames.
func (s *Stream) Len() int { return len(s.Frames) }

// Duration is the play length of the stream.
func (s *Stream) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Frames)) * time.Second / time.Duration(s.SampleRate)
}

// Resampled returns the stream converted to rate. The receiver is returned
// unchanged when it already has that rate.
func (s *Stream) Resampled(rate int) *Stream {
	if rate <= 0 || rate == s.SampleRate || len(s.Frames) == 0 {
		return s
	}
	src := &frameStreamer{frames: s.Frames}
	res := beep.Resample(4, beep.SampleRate(s.SampleRate), beep.SampleRate(rate), src)

	out := make([][2]float32, 0, int(int64(len(s.Frames))*int64(rate)/int64(s.SampleRate))+1)
	buf := make([][2]float64, 4096)
	for {
		n, ok := res.Stream(buf)
		for _, f := range buf[:n] {
			out = append(out, [2]float32{float32(f[0]), float32(f[1])})
		}
		if !ok {
			break
		}
	}
	return &Stream{Path: s.Path, SampleRate: rate, Frames: out}
}

// frameStreamer plays a frame slice once as a beep.Streamer.
type frameStreamer struct {
	frames [][2]float32
	pos    int
}

func (f *frameStreamer) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= len(f.frames) {
		return 0, false
	}
	n := min(len(samples), len(f.frames)-f.pos)
	for i := range n {
		fr := f.frames[f.pos+i]
		samples[i] = [2]float64{float64(fr[0]), float64(fr[1])}
	}
	f.pos += n
	return n, true
}

func (f *frameStreamer) Err() error { return nil }
