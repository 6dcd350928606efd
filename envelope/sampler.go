// Package envelope reduces captured stereo audio into a fixed-length mono
// amplitude row and keeps that row ready for upload as a 1-pixel-high texture.
package envelope

// Bounds returns the half-open sample range [start, end) that feeds output
// bin i when a batch of length l is reduced to n bins. When l > 0 every bin
// covers at least one sample.
func Bounds(i, l, n int) (start, end int) {
	start = i * l / n
	end = (i + 1) * l / n
	if end <= start {
		end = min(start+1, l)
	}
	return start, end
}

// Reduce bin-averages batch into out, mixing each stereo pair down to mono.
// It reports false and leaves out untouched when batch is empty, so callers
// can skip the upload and keep the previous envelope on screen.
func Reduce(batch [][2]float32, out []float32) bool {
	l := len(batch)
	n := len(out)
	if l == 0 || n == 0 {
		return false
	}

	for i := range out {
		start, end := Bounds(i, l, n)
		var acc float64
		for j := start; j < end; j++ {
			acc += 0.5 * float64(batch[j][0]+batch[j][1])
		}
		out[i] = float32(acc / float64(max(1, end-start)))
	}
	return true
}
