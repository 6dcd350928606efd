package audio

// Deinterleave converts interleaved samples into stereo frames. Mono input
// is copied to both sides and any channel past the second is dropped.
func Deinterleave(samples []float32, channels int) [][2]float32 {
	if channels <= 0 {
		return nil
	}
	n := len(samples) / channels
	out := make([][2]float32, n)
	for i := range out {
		l := samples[i*channels]
		r := l
		if channels > 1 {
			r = samples[i*channels+1]
		}
		out[i] = [2]float32{l, r}
	}
	return out
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
