package envelope

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

// Encoding selects how an amplitude is laid out in a texel. It is fixed for
// the life of a stream.
type Encoding int

const (
	// EncodingRed stores the raw amplitude in a single float channel.
	EncodingRed Encoding = iota
	// EncodingGray replicates the amplitude across RGB with alpha 1.
	EncodingGray
)

// ParseEncoding maps a config string to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "red":
		return EncodingRed, nil
	case "gray", "grey":
		return EncodingGray, nil
	default:
		return EncodingRed, fmt.Errorf("unknown envelope encoding %q", s)
	}
}

// Channels returns the number of float components per texel.
func (e Encoding) Channels() int {
	if e == EncodingGray {
		return 4
	}
	return 1
}

func (e Encoding) String() string {
	if e == EncodingGray {
		return "gray"
	}
	return "red"
}

// Buffer is a single row of N envelope texels.
type Buffer struct {
	n        int
	encoding Encoding
	values   []float32
	pixels   []float32
	scratch  []float64

	// warn receives non-fatal diagnostics; nil falls back to glog.
	warn func(msg string)
}

// NewBuffer allocates a zeroed row of n texels.
func NewBuffer(n int, encoding Encoding, warn func(msg string)) *Buffer {
	return &Buffer{
		n:        n,
		encoding: encoding,
		values:   make([]float32, n),
		pixels:   make([]float32, n*encoding.Channels()),
		scratch:  make([]float64, n),
		warn:     warn,
	}
}

// Push rewrites the whole row from samples. A length other than N is not an
// error: the first min(len, N) values are kept and the rest are zero.
func (b *Buffer) Push(samples []float32) {
	if len(samples) != b.n {
		msg := fmt.Sprintf("samples length %d != envelope width %d, clamping/padding", len(samples), b.n)
		if b.warn != nil {
			b.warn(msg)
		} else {
			glog.Warning(msg)
		}
	}

	count := min(len(samples), b.n)
	copy(b.values, samples[:count])
	clear(b.values[count:])

	switch b.encoding {
	case EncodingGray:
		for i, v := range b.values {
			px := b.pixels[i*4 : i*4+4]
			px[0], px[1], px[2], px[3] = v, v, v, 1
		}
	default:
		copy(b.pixels, b.values)
	}
}

// Values returns the current envelope. The slice is owned by the buffer.
func (b *Buffer) Values() []float32 { return b.values }

// Pixels returns the encoded row ready for texture upload.
func (b *Buffer) Pixels() []float32 { return b.pixels }

// Width is the configured sample count N.
func (b *Buffer) Width() int { return b.n }

// Encoding returns the texel layout of the row.
func (b *Buffer) Encoding() Encoding { return b.encoding }

// Stats returns the peak absolute amplitude and the mean of the row.
func (b *Buffer) Stats() (peak, mean float64) {
	if b.n == 0 {
		return 0, 0
	}
	for i, v := range b.values {
		b.scratch[i] = math.Abs(float64(v))
	}
	peak = floats.Max(b.scratch)
	for i, v := range b.values {
		b.scratch[i] = float64(v)
	}
	mean = floats.Sum(b.scratch) / float64(b.n)
	return peak, mean
}
