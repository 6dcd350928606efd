package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

var errNotWav = errors.New("not a valid wav file")

func decodeWav(r io.ReadSeeker) (*Stream, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errNotWav
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("wav: missing format")
	}

	// go-audio hands back integers, normalize based on bit depth.
	var scale float32
	switch buf.SourceBitDepth {
	case 8:
		scale = 128.0
	case 24:
		scale = 8388608.0
	case 32:
		scale = 2147483648.0
	default:
		scale = 32768.0
	}
	offset := 0
	if buf.SourceBitDepth == 8 {
		// 8-bit PCM is unsigned.
		offset = 128
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = clamp(float32(v-offset) / scale)
	}
	return &Stream{SampleRate: buf.Format.SampleRate, Frames: Deinterleave(samples, buf.Format.NumChannels)}, nil
}
