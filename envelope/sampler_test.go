package envelope

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestBoundsPartitionInput(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 7, 64, 512} {
		for _, l := range []int{n, n + 1, 2*n - 1, 3 * n, 1000, 4096} {
			if l < n {
				continue
			}
			t.Run(fmt.Sprintf("L%d_N%d", l, n), func(t *testing.T) {
				next := 0
				for i := 0; i < n; i++ {
					start, end := Bounds(i, l, n)
					if start != next {
						t.Fatalf("bin %d starts at %d, want %d", i, start, next)
					}
					if end <= start {
						t.Fatalf("bin %d is empty: [%d,%d)", i, start, end)
					}
					next = end
				}
				if next != l {
					t.Fatalf("bins cover [0,%d), want [0,%d)", next, l)
				}
			})
		}
	}
}

func TestBoundsShortInputRepeatsSamples(t *testing.T) {
	t.Parallel()

	// L < N: some bins fall back to a single repeated index.
	l, n := 3, 8
	for i := 0; i < n; i++ {
		start, end := Bounds(i, l, n)
		if end-start != 1 && end-start != 0 {
			t.Fatalf("bin %d spans %d samples", i, end-start)
		}
		if start >= l || end > l {
			t.Fatalf("bin %d out of range: [%d,%d)", i, start, end)
		}
	}
}

func TestReduceEmptyBatchLeavesOutput(t *testing.T) {
	t.Parallel()

	out := []float32{0.1, 0.2, 0.3, 0.4}
	before := append([]float32(nil), out...)

	if Reduce(nil, out) {
		t.Fatal("Reduce reported an update for an empty batch")
	}
	for i := range out {
		if out[i] != before[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], before[i])
		}
	}
}

func TestReduceAveragesMonoMix(t *testing.T) {
	t.Parallel()

	batch := [][2]float32{
		{1, 0}, {1, 1},
		{0, 0}, {-1, -1},
		{0.5, 0.5}, {0.25, 0.75},
		{1, -1}, {0, 0},
	}
	out := make([]float32, 4)
	if !Reduce(batch, out) {
		t.Fatal("Reduce reported no update")
	}

	want := []float64{0.75, -0.5, 0.5, 0}
	got := make([]float64, len(out))
	for i, v := range out {
		got[i] = float64(v)
	}
	if !floats.EqualApprox(got, want, 1e-6) {
		t.Fatalf("Reduce = %v, want %v", got, want)
	}
}

func TestReduceShortBatch(t *testing.T) {
	t.Parallel()

	batch := [][2]float32{{0.2, 0.4}, {1, 1}}
	out := make([]float32, 5)
	Reduce(batch, out)

	for i, v := range out {
		start, _ := Bounds(i, len(batch), len(out))
		want := 0.5 * (batch[start][0] + batch[start][1])
		if v != want {
			t.Errorf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func BenchmarkReduce(b *testing.B) {
	batch := make([][2]float32, 2048)
	for i := range batch {
		batch[i] = [2]float32{float32(i%100) / 100, -float32(i%50) / 50}
	}
	out := make([]float32, 512)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Reduce(batch, out)
	}
}
