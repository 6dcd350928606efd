package audio

import (
	"sync"
)

// FrameRing is a thread-safe, bounded queue of stereo frames. Producers
// (capture callbacks, the playback tap) write from their own goroutines;
// the render loop drains it once per tick. When full, the oldest frames are
// dropped so the consumer always sees the most recent audio.
type FrameRing struct {
	mu       sync.Mutex
	buf      [][2]float32
	head     int // index of the oldest frame
	size     int // frames currently held
	dropped  int64
	capacity int
}

// NewFrameRing creates a ring holding at most capacity frames.
func NewFrameRing(capacity int) *FrameRing {
	capacity = max(capacity, 1)
	return &FrameRing{
		buf:      make([][2]float32, capacity),
		capacity: capacity,
	}
}

// Write appends frames, dropping the oldest on overflow.
func (r *FrameRing) Write(frames [][2]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Only the newest capacity frames can survive.
	if over := len(frames) - r.capacity; over > 0 {
		r.dropped += int64(over)
		frames = frames[over:]
	}
	for _, f := range frames {
		tail := (r.head + r.size) % r.capacity
		r.buf[tail] = f
		if r.size == r.capacity {
			r.head = (r.head + 1) % r.capacity
			r.dropped++
		} else {
			r.size++
		}
	}
}

// WriteInterleaved appends interleaved samples with the given channel count.
// Mono input is duplicated to both sides; channels beyond two are ignored.
func (r *FrameRing) WriteInterleaved(samples []float32, channels int) {
	r.Write(Deinterleave(samples, channels))
}

// Available returns the number of frames that can be read.
func (r *FrameRing) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Read destructively reads up to n of the oldest frames.
func (r *FrameRing) Read(n int) [][2]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	n = min(n, r.size)
	if n <= 0 {
		return nil
	}
	out := make([][2]float32, n)
	for i := range out {
		out[i] = r.buf[(r.head+i)%r.capacity]
	}
	r.head = (r.head + n) % r.capacity
	r.size -= n
	return out
}

// Reset discards every queued frame.
func (r *FrameRing) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head, r.size = 0, 0
}

// Dropped is the number of frames discarded because the ring was full.
func (r *FrameRing) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
