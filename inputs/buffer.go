package inputs

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/graphics"
)

// Buffer is a pair of identically sized render targets used for
// double-buffered feedback. The write index follows the parity of the tick
// so a pass never samples the target it is drawing into.
type Buffer struct {
	device  graphics.Device
	targets [2]*graphics.Target

	readIndex  int // result of the previous tick
	writeIndex int // target drawn this tick
}

// NewBuffer allocates both targets. Either both exist or neither does.
func NewBuffer(device graphics.Device, width, height int) (*Buffer, error) {
	b := &Buffer{device: device, readIndex: 1, writeIndex: 0}
	for i := 0; i < 2; i++ {
		t, err := device.NewTarget(width, height)
		if err != nil {
			b.Destroy()
			return nil, fmt.Errorf("feedback target %d: %w", i, err)
		}
		b.targets[i] = t
	}
	glog.V(1).Infof("Allocated feedback buffer %dx%d", width, height)
	return b, nil
}

// Select points the buffer at the write target for tick.
func (b *Buffer) Select(tick uint64) {
	b.writeIndex = int(tick % 2)
	b.readIndex = 1 - b.writeIndex
}

// WriteIndex is the index of the target drawn this tick.
func (b *Buffer) WriteIndex() int { return b.writeIndex }

// ReadIndex is the index of the target holding the previous result.
func (b *Buffer) ReadIndex() int { return b.readIndex }

// WriteTarget returns the target drawn this tick.
func (b *Buffer) WriteTarget() *graphics.Target { return b.targets[b.writeIndex] }

// ReadTarget returns the target holding the previous result.
func (b *Buffer) ReadTarget() *graphics.Target { return b.targets[b.readIndex] }

// Target returns target i.
func (b *Buffer) Target(i int) *graphics.Target { return b.targets[i] }

// Texture implements IChannel by exposing the previous result.
func (b *Buffer) Texture() graphics.Texture {
	if t := b.ReadTarget(); t != nil {
		return t.Texture
	}
	return 0
}

// Resolution is the size of both targets.
func (b *Buffer) Resolution() (int, int) {
	if t := b.targets[0]; t != nil {
		return t.Width, t.Height
	}
	return 0, 0
}

// Destroy frees both targets.
func (b *Buffer) Destroy() {
	for i, t := range b.targets {
		if t != nil {
			b.device.DeleteTarget(t)
			b.targets[i] = nil
		}
	}
}
