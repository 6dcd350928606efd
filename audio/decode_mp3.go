package audio

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo.
const mp3BytesPerFrame = 4

func decodeMP3(r io.ReadSeeker) (*Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	frames := make([][2]float32, 0, max(dec.Length()/mp3BytesPerFrame, 0))
	buf := make([]byte, 8192)
	for {
		n, err := dec.Read(buf)
		for i := 0; i+mp3BytesPerFrame <= n; i += mp3BytesPerFrame {
			l := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			r := int16(uint16(buf[i+2]) | uint16(buf[i+3])<<8)
			frames = append(frames, [2]float32{float32(l) / 32768.0, float32(r) / 32768.0})
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
	}
	return &Stream{SampleRate: dec.SampleRate(), Frames: frames}, nil
}
