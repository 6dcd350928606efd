package audio

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

func decodeOgg(r io.ReadSeeker) (*Stream, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: %w", err)
	}
	if format.Channels <= 0 {
		return nil, fmt.Errorf("ogg: invalid channel count %d", format.Channels)
	}
	return &Stream{SampleRate: format.SampleRate, Frames: Deinterleave(samples, format.Channels)}, nil
}
